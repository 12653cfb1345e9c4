//go:build rp2040

package main

import (
	"machine"
	"time"

	"picobridge/bridge"
	"picobridge/config"
	"picobridge/core"
	"picobridge/protocol"
	"picobridge/targets/pio"
)

const (
	maxWriteFailures = 10
	maxGPIO          = 29

	// Event ring dump period when debug output is on
	eventDumpInterval = 5_000_000 // µs
)

var errBadPin = protocol.Code("Pin out of range")

var (
	bridgeInst *bridge.Bridge

	// Debug counters
	msgerrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

// smiCompleted runs from the PIO0 interrupt once a read has been pushed.
func smiCompleted() {
	if bridgeInst != nil {
		bridgeInst.DeviceComplete()
	}
}

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// Initialize USB CDC immediately
	InitUSB()
	console := usbConsole{}
	core.SetDebugWriter(func(s string) {
		console.Write([]byte(s))
		console.Write([]byte("\r\n"))
	})

	cfg := config.Default()
	core.SetDebugEnabled(cfg.Console.Debug)

	gpioDriver := NewRPGPIODriver()
	core.SetGPIODriver(gpioDriver)

	engine, err := pio.NewSMIEngine()
	if err != nil {
		halt(console, "SMI: "+err.Error())
	}
	err = engine.Init(cfg.SMI.MDIOPin, cfg.SMI.MDCPin, cfg.ClockDivisor(), smiCompleted)
	if err != nil {
		halt(console, "SMI: "+err.Error())
	}
	core.SetDeviceChannel(engine)

	uart, err := InitUART(cfg)
	if err != nil {
		halt(console, "UART: "+err.Error())
	}

	// Chip select edges before bridgeInst is set are ignored
	spi, err := InitSPISlave(cfg)
	if err != nil {
		halt(console, "SPI: "+err.Error())
	}

	b, err := bridge.New(bridge.Options{
		Config:  cfg,
		Console: console,
		UART:    uart,
		SPI:     spi,
	})
	if err != nil {
		halt(console, "bridge: "+err.Error())
	}
	bridgeInst = b
	console.Write([]byte(protocol.MenuBanner))

	// Start USB reader goroutine
	go usbReaderLoop()

	uartScratch := make([]byte, 64)
	lastDump := GetHardwareUptime()
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
				}
			}()

			drainUART(uart, uartScratch)
			b.Poll()

			if core.IsDebugEnabled() {
				if now := GetHardwareUptime(); now-lastDump >= eventDumpInterval {
					lastDump = now
					core.DumpEventRing()
				}
			}
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	// Recover from panics to prevent a firmware crash
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			// Restart the reader loop
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	var buf [1]byte
	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// Host came back after writes started failing
			if usbWasDisconnected {
				usbWasDisconnected = false
				consecutiveWriteFailures = 0
				usbConsole{}.Write([]byte(protocol.MenuBanner))
			}

			buf[0] = data
			if bridgeInst.FeedConsole(buf[:]) == 0 {
				// Ring full - the console task is behind
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}

// halt reports a fatal boot error on the console forever.
func halt(console usbConsole, msg string) {
	for {
		console.Write([]byte(msg + "\r\n"))
		time.Sleep(time.Second)
	}
}
