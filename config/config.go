// Package config holds the bridge's pin, clock and transport settings.
// A JSON document is compiled into the firmware and decoded at boot.
package config

import (
	"encoding/json"
	"errors"

	"picobridge/protocol"
)

// MaxPin is the highest user GPIO on the RP2040
const MaxPin = 29

// SMIConfig selects the MDIO/MDC pins and the initial MDC divisor
type SMIConfig struct {
	MDIOPin      uint8  `json:"mdio_pin"`
	MDCPin       uint8  `json:"mdc_pin"`
	ClockDivisor uint16 `json:"clock_divisor"`
	ClockFrac    uint8  `json:"clock_frac"`
}

// GPIOConfig names the output pin driven by GPIO commands
type GPIOConfig struct {
	Pin uint8 `json:"pin"`
}

// UARTConfig configures the UART transport
type UARTConfig struct {
	Baud  uint32 `json:"baud"`
	TXPin uint8  `json:"tx_pin"`
	RXPin uint8  `json:"rx_pin"`
}

// SPIConfig configures the SPI slave transport
type SPIConfig struct {
	WordWidth uint8 `json:"word_width"`
	Mode      uint8 `json:"mode"`
	SCKPin    uint8 `json:"sck_pin"`
	MOSIPin   uint8 `json:"mosi_pin"`
	MISOPin   uint8 `json:"miso_pin"`
	CSPin     uint8 `json:"cs_pin"`
}

// ConsoleConfig configures the USB serial console
type ConsoleConfig struct {
	Echo  *bool `json:"echo"`
	Debug bool  `json:"debug"` // debug lines and event ring dumps
}

// ChecksumConfig controls what a checksum mismatch does. By default the
// mismatch is only logged; Strict rejects the request.
type ChecksumConfig struct {
	Strict bool `json:"strict"`
}

// BridgeConfig is the complete firmware configuration
type BridgeConfig struct {
	SMI      SMIConfig      `json:"smi"`
	GPIO     GPIOConfig     `json:"gpio"`
	UART     UARTConfig     `json:"uart"`
	SPI      SPIConfig      `json:"spi"`
	Console  ConsoleConfig  `json:"console"`
	Checksum ChecksumConfig `json:"checksum"`
}

// Errors returned by Validate
var (
	ErrPinRange     = errors.New("config: pin out of range")
	ErrPinConflict  = errors.New("config: pin assigned twice")
	ErrWordWidth    = errors.New("config: spi word_width must be 8 or 16")
	ErrSPIMode      = errors.New("config: spi mode must be 0-3")
	ErrClockDivisor = errors.New("config: smi clock_divisor must be nonzero")
	ErrUARTBaud     = errors.New("config: uart baud must be nonzero")
)

// DefaultJSON is the configuration compiled into the firmware
const DefaultJSON = `{
  "smi": {"mdio_pin": 5, "mdc_pin": 6, "clock_divisor": 10, "clock_frac": 0},
  "gpio": {"pin": 28},
  "uart": {"baud": 9600, "tx_pin": 0, "rx_pin": 1},
  "spi": {"word_width": 8, "mode": 3, "sck_pin": 18, "mosi_pin": 16, "miso_pin": 19, "cs_pin": 17},
  "console": {"echo": true, "debug": false},
  "checksum": {"strict": false}
}`

// LoadConfig parses a JSON configuration, fills in defaults and validates it
func LoadConfig(jsonData []byte) (*BridgeConfig, error) {
	var config BridgeConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the compiled-in configuration
func Default() *BridgeConfig {
	config, err := LoadConfig([]byte(DefaultJSON))
	if err != nil {
		panic("config: default document is invalid: " + err.Error())
	}
	return config
}

// applyDefaults fills in missing configuration values. Pin fields cannot
// be defaulted this way since 0 is a valid pin; only values where zero is
// meaningless are touched.
func applyDefaults(config *BridgeConfig) {
	if config.SMI.ClockDivisor == 0 {
		config.SMI.ClockDivisor = protocol.DefaultClockWhole
		config.SMI.ClockFrac = protocol.DefaultClockFrac
	}
	if config.UART.Baud == 0 {
		config.UART.Baud = 9600
	}
	if config.SPI.WordWidth == 0 {
		config.SPI.WordWidth = 8
	}
	if config.Console.Echo == nil {
		echo := true
		config.Console.Echo = &echo
	}
}

// Validate checks ranges and pin assignments
func (c *BridgeConfig) Validate() error {
	if c.SPI.WordWidth != 8 && c.SPI.WordWidth != 16 {
		return ErrWordWidth
	}
	if c.SPI.Mode > 3 {
		return ErrSPIMode
	}
	if c.SMI.ClockDivisor == 0 {
		return ErrClockDivisor
	}
	if c.UART.Baud == 0 {
		return ErrUARTBaud
	}

	pins := []uint8{
		c.SMI.MDIOPin, c.SMI.MDCPin,
		c.GPIO.Pin,
		c.UART.TXPin, c.UART.RXPin,
		c.SPI.SCKPin, c.SPI.MOSIPin, c.SPI.MISOPin, c.SPI.CSPin,
	}
	var used uint32
	for _, p := range pins {
		if p > MaxPin {
			return ErrPinRange
		}
		if used&(1<<p) != 0 {
			return ErrPinConflict
		}
		used |= 1 << p
	}
	return nil
}

// EchoEnabled reports whether the console echoes typed characters
func (c *BridgeConfig) EchoEnabled() bool {
	return c.Console.Echo == nil || *c.Console.Echo
}

// ClockDivisor returns the boot-time MDC divisor
func (c *BridgeConfig) ClockDivisor() protocol.ClockDivisor {
	return protocol.ClockDivisor{Whole: c.SMI.ClockDivisor, Frac: c.SMI.ClockFrac}
}

// Width returns the SPI word width as a protocol value
func (c *BridgeConfig) Width() protocol.WordWidth {
	return protocol.WordWidth(c.SPI.WordWidth)
}
