//go:build rp2040

package main

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"picobridge/config"
)

// InitUART configures UART0 with an interrupt-filled receive ring.
func InitUART(cfg *config.BridgeConfig) (*uartx.UART, error) {
	hw := uartx.UART0
	err := hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.UART.Baud,
		TX:       machine.Pin(cfg.UART.TXPin),
		RX:       machine.Pin(cfg.UART.RXPin),
	})
	if err != nil {
		return nil, err
	}
	return hw, nil
}

// drainUART moves whatever the ring holds into the bridge.
func drainUART(hw *uartx.UART, scratch []byte) {
	if hw.Buffered() == 0 {
		return
	}
	n, _ := hw.Read(scratch)
	if n == 0 {
		return
	}
	if fed := bridgeInst.FeedUART(scratch[:n]); fed < n {
		msgerrors++
	}
}
