package serial

import (
	"io"
)

// Port is a connection to a bridge console, either its USB CDC port or a
// USB-serial adapter on its UART. Open returns the tarm/serial one.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread console output
	Flush() error
}

// Config describes a bridge console port
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3"
	Device string

	// Baud rate (USB CDC ignores this; the bridge UART defaults to 9600)
	Baud int

	// Read timeout in milliseconds. Must be positive: a reply is complete
	// once a read times out with nothing new.
	ReadTimeout int
}

// DefaultConfig returns a configuration for the bridge's USB console
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100, // also the reply quiet period
	}
}
