//go:build rp2040

package pio

// SMI (clause 22 MDIO) master on a PIO state machine.
//
// Each 32-bit word from the device channel drives one management frame. The
// word is shifted out LSB first:
//
//	bits 0-1   opcode (read 01, write 10; appears as 10 / 01 on the wire)
//	bits 2-6   PHY address, MSB first
//	bits 7-11  register address, MSB first
//	bit  12    data phase follows (write)
//	bits 13-28 write data, MSB first
//
// A read samples 16 bits after turnaround, pushes them (bits 15-0) and
// raises PIO IRQ flag 0. Writes raise nothing. Read bits are sampled one
// cycle before MDC rises, at least four cycles after the PHY was clocked.

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"picobridge/protocol"
)

const (
	smiIRQFlag   = 0
	smiIRQEnable = 1 << (8 + smiIRQFlag) // IRQ0_INTE SM0..3 flag bits start at 8

	smiRead    = 21 // program labels
	smiRelease = 30

	smiPIOOrigin = 0 // jumps are absolute
)

var errNoStateMachine = errors.New("pio: no free state machine")

// smiComplete is called from the PIO0_IRQ_0 handler
var smiComplete func()

// buildSMIProgram assembles the SMI program. MDC is the single side-set
// pin; MDIO is the out, set and in pin. Every MDC period is
// protocol.SMICyclesPerBit state machine cycles: 2 low, 3 high while
// driving, 3 low, 2 high while reading.
func buildSMIProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 1}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Side(0).Encode(),             // 0: pull block side 0
		asm.Set(rp2pio.SetDestPindirs, 1).Side(0).Encode(), // 1: set pindirs, 1
		asm.Set(rp2pio.SetDestX, 31).Side(0).Encode(),      // 2: set x, 31
		// preamble:
		asm.Set(rp2pio.SetDestPins, 1).Side(0).Delay(1).Encode(),  // 3: set pins, 1 side 0 [1]
		asm.Jmp(3, rp2pio.JmpXNZeroDec).Side(1).Delay(2).Encode(), // 4: jmp x--, preamble side 1 [2]
		asm.Set(rp2pio.SetDestPins, 0).Side(0).Delay(1).Encode(),  // 5: start bit 0
		asm.Nop().Side(1).Delay(2).Encode(),                       // 6
		asm.Set(rp2pio.SetDestPins, 1).Side(0).Delay(1).Encode(),  // 7: start bit 1
		asm.Nop().Side(1).Delay(2).Encode(),                       // 8
		asm.Set(rp2pio.SetDestX, 11).Side(0).Encode(),             // 9: op, phy, reg
		// addr:
		asm.Out(rp2pio.OutDestPins, 1).Side(0).Delay(1).Encode(),   // 10: out pins, 1 side 0 [1]
		asm.Jmp(10, rp2pio.JmpXNZeroDec).Side(1).Delay(2).Encode(), // 11: jmp x--, addr side 1 [2]
		asm.Out(rp2pio.OutDestX, 1).Side(0).Encode(),               // 12: out x, 1 (write flag)
		asm.Jmp(smiRead, rp2pio.JmpXZero).Side(0).Encode(),         // 13: jmp !x, read
		asm.Set(rp2pio.SetDestPins, 1).Side(0).Delay(1).Encode(),   // 14: turnaround 1
		asm.Nop().Side(1).Delay(2).Encode(),                        // 15
		asm.Set(rp2pio.SetDestPins, 0).Side(0).Delay(1).Encode(),   // 16: turnaround 0
		asm.Set(rp2pio.SetDestX, 15).Side(1).Delay(2).Encode(),     // 17: set x, 15 side 1 [2]
		// wdata:
		asm.Out(rp2pio.OutDestPins, 1).Side(0).Delay(1).Encode(),   // 18: out pins, 1 side 0 [1]
		asm.Jmp(18, rp2pio.JmpXNZeroDec).Side(1).Delay(2).Encode(), // 19: jmp x--, wdata side 1 [2]
		asm.Jmp(smiRelease, rp2pio.JmpAlways).Side(0).Encode(),     // 20: jmp release
		// read:
		asm.Set(rp2pio.SetDestPindirs, 0).Side(0).Delay(1).Encode(), // 21: set pindirs, 0 side 0 [1]
		asm.Nop().Side(1).Delay(2).Encode(),                         // 22: turnaround Z
		asm.Set(rp2pio.SetDestX, 15).Side(0).Delay(1).Encode(),      // 23: set x, 15 side 0 [1]
		asm.Nop().Side(1).Delay(2).Encode(),                         // 24: turnaround 0 (PHY)
		// rdata: sample at the end of the low phase, just before MDC rises
		asm.Nop().Side(0).Delay(1).Encode(),                        // 25: nop side 0 [1]
		asm.In(rp2pio.InSrcPins, 1).Side(0).Encode(),               // 26: in pins, 1 side 0
		asm.Jmp(25, rp2pio.JmpXNZeroDec).Side(1).Delay(1).Encode(), // 27: jmp x--, rdata side 1 [1]
		asm.Push(false, true).Side(0).Encode(),                     // 28: push block
		asm.IRQSet(false, smiIRQFlag).Side(0).Encode(),             // 29: irq nowait 0
		// release:
		asm.Set(rp2pio.SetDestPindirs, 0).Side(0).Encode(), // 30: set pindirs, 0 side 0
		// .wrap
	}
}

// SMIEngine implements core.DeviceChannel on a PIO state machine.
type SMIEngine struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	mdio   machine.Pin
	mdc    machine.Pin
	offset uint8
	pioNum uint8
	smNum  uint8
	irq    interrupt.Interrupt
}

// NewSMIEngine claims a state machine on PIO0. The completion interrupt is
// wired to PIO0_IRQ_0, so only PIO0 machines are usable.
func NewSMIEngine() (*SMIEngine, error) {
	for {
		pioNum, smNum, ok := allocatePIO()
		if !ok {
			return nil, errNoStateMachine
		}
		if pioNum != 0 {
			continue
		}
		return &SMIEngine{
			pio:    rp2pio.PIO0,
			sm:     rp2pio.PIO0.StateMachine(smNum),
			pioNum: pioNum,
			smNum:  smNum,
		}, nil
	}
}

// Init loads the program, configures pins and the MDC divisor, and hooks
// onComplete to the read-completion interrupt. onComplete runs in interrupt
// context after the flag has been acknowledged.
func (e *SMIEngine) Init(mdio, mdc uint8, div protocol.ClockDivisor, onComplete func()) error {
	e.mdio = machine.Pin(mdio)
	e.mdc = machine.Pin(mdc)

	// Claim the state machine first
	e.sm.TryClaim()

	program := buildSMIProgram()
	offset, err := e.pio.AddProgram(program, smiPIOOrigin)
	if err != nil {
		releasePIO(e.pioNum, e.smNum)
		return err
	}
	e.offset = offset

	pinCfg := machine.PinConfig{Mode: e.pio.PinMode()}
	e.mdio.Configure(pinCfg)
	e.mdc.Configure(pinCfg)

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetWrap(offset, offset+uint8(len(program))-1)
	cfg.SetSidesetParams(1, false, false)
	cfg.SetSidesetPins(e.mdc)
	cfg.SetOutPins(e.mdio, 1)
	cfg.SetSetPins(e.mdio, 1)
	cfg.SetInPins(e.mdio)

	// Out: LSB first, explicit pull. In: shift left so the last bit
	// sampled lands in bit 0.
	cfg.SetOutShift(true, false, 32)
	cfg.SetInShift(false, false, 32)
	cfg.SetClkDivIntFrac(div.Whole, div.Frac)

	e.sm.Init(offset, cfg)

	// MDC is an output; MDIO idles released and is pulled up externally
	e.sm.SetPindirsConsecutive(e.mdc, 1, true)
	e.sm.SetPindirsConsecutive(e.mdio, 1, false)
	e.sm.SetPinsConsecutive(e.mdc, 1, false)

	smiComplete = onComplete
	e.irq = interrupt.New(rp.IRQ_PIO0_IRQ_0, func(interrupt.Interrupt) {
		if rp.PIO0.IRQ.Get()&(1<<smiIRQFlag) == 0 {
			return
		}
		rp.PIO0.IRQ.Set(1 << smiIRQFlag)
		if smiComplete != nil {
			smiComplete()
		}
	})
	rp.PIO0.IRQ.Set(1 << smiIRQFlag)
	rp.PIO0.IRQ0_INTE.SetBits(smiIRQEnable)
	e.irq.Enable()

	e.sm.SetEnabled(true)
	return nil
}

// Send queues one frame word, waiting only while the TX FIFO is full.
func (e *SMIEngine) Send(word uint32) {
	for e.sm.IsTxFIFOFull() {
	}
	e.sm.TxPut(word)
}

// Recv returns the word pushed by the last read, if any.
func (e *SMIEngine) Recv() (uint32, bool) {
	if e.sm.IsRxFIFOEmpty() {
		return 0, false
	}
	return e.sm.RxGet(), true
}

// SetClockDivisor retimes MDC. Takes effect from the next instruction.
func (e *SMIEngine) SetClockDivisor(div protocol.ClockDivisor) {
	e.sm.SetClkDiv(div.Whole, div.Frac)
}
