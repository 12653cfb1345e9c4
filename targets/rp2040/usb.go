//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
func InitUSB() {
	// machine.Serial is USB CDC on the Pico; descriptors come from the runtime
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of bytes available to read from USB
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from USB
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// usbConsole is the console port handed to the bridge. Writes that fail
// are counted and dropped; the host may simply not be listening.
type usbConsole struct{}

func (usbConsole) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := machine.Serial.Write(p[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > maxWriteFailures {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
			}
			return written, err
		}
		written += n
	}
	consecutiveWriteFailures = 0
	return written, nil
}
