//go:build rp2040

package main

import (
	"device/rp"
	"machine"

	"tinygo.org/x/drivers"

	"picobridge/config"
)

var _ drivers.SPI = machine.SPI0

// InitSPISlave brings SPI0 up as a slave on the configured pins. The
// controller is configured as a master first to route the pins and set the
// frame format, then switched over with SSE low.
func InitSPISlave(cfg *config.BridgeConfig) (*machine.SPI, error) {
	spi := machine.SPI0
	err := spi.Configure(machine.SPIConfig{
		Frequency: 1000000,
		SCK:       machine.Pin(cfg.SPI.SCKPin),
		SDO:       machine.Pin(cfg.SPI.MISOPin),
		SDI:       machine.Pin(cfg.SPI.MOSIPin),
		Mode:      cfg.SPI.Mode,
		LSBFirst:  false,
	})
	if err != nil {
		return nil, err
	}

	spi.Bus.SSPCR1.ClearBits(rp.SPI0_SSPCR1_SSE)
	spi.Bus.SSPCR1.SetBits(rp.SPI0_SSPCR1_MS)
	spi.Bus.SSPCR1.SetBits(rp.SPI0_SSPCR1_SSE)

	cs := machine.Pin(cfg.SPI.CSPin)
	cs.Configure(machine.PinConfig{Mode: machine.PinSPI})
	// Chip select falling edge starts an exchange
	err = cs.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		if bridgeInst != nil {
			bridgeInst.SPISelected()
		}
	})
	if err != nil {
		return nil, err
	}
	return spi, nil
}
