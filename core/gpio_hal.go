package core

// GPIOPin is an RP2040 GPIO number
type GPIOPin uint32

// GPIODriver drives the bridge's command output pin. The target registers
// one at boot; tests register a map-backed fake.
type GPIODriver interface {
	// ConfigureOutput claims pin as a push-pull output
	ConfigureOutput(pin GPIOPin) error

	// SetPin drives pin high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error
}

var gpioDriver GPIODriver

// SetGPIODriver registers the driver used when bridge.Options.GPIO is nil.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the registered driver and panics if none was set.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
