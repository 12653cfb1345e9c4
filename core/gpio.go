// Designated output pin driven by GPIO commands
package core

// DigitalOut is the single output pin the bridge exposes to the host.
// It remembers the last level written so reads do not touch hardware.
type DigitalOut struct {
	Pin   GPIOPin
	state bool
	ready bool
}

// NewDigitalOut binds an output to a pin; Configure must be called before Set.
func NewDigitalOut(pin GPIOPin) *DigitalOut {
	return &DigitalOut{Pin: pin}
}

// Configure makes the pin an output driven low
func (d *DigitalOut) Configure(drv GPIODriver) error {
	if err := drv.ConfigureOutput(d.Pin); err != nil {
		return err
	}
	if err := drv.SetPin(d.Pin, false); err != nil {
		return err
	}
	d.state = false
	d.ready = true
	return nil
}

// Set drives the pin. Any nonzero value is high.
func (d *DigitalOut) Set(drv GPIODriver, value uint32) error {
	if !d.ready {
		if err := d.Configure(drv); err != nil {
			return err
		}
	}
	level := value != 0
	if err := drv.SetPin(d.Pin, level); err != nil {
		return err
	}
	d.state = level
	RecordEvent(EvtPinSet, uint8(d.Pin), value, 0)
	return nil
}

// State returns the last level written
func (d *DigitalOut) State() bool {
	return d.state
}
