package core

import "picobridge/protocol"

// DeviceChannel is the hardware engine that runs one SMI transaction per
// word. Send queues a pre-encoded word, Recv returns the word the engine
// pushed back after a read, and SetClockDivisor retimes MDC. Completion is
// signalled out of band: the target calls the bridge when its interrupt fires.
type DeviceChannel interface {
	Send(word uint32)
	Recv() (uint32, bool)
	SetClockDivisor(div protocol.ClockDivisor)
}

// Global singleton used when the bridge is built without an explicit channel.
var deviceChannel DeviceChannel

// SetDeviceChannel is called by target-specific code to register its engine.
func SetDeviceChannel(d DeviceChannel) {
	deviceChannel = d
}

// MustDevice returns the configured channel or panics if missing.
func MustDevice() DeviceChannel {
	if deviceChannel == nil {
		panic("device channel not configured")
	}
	return deviceChannel
}
