package protocol

// Clock codes accepted by Config/Set. Two sentinel codes select pre-computed
// fractional divisors; any other code from 1 to 0xFFFF is a raw integer
// divisor.
const (
	ClockCode2M5 = 2500  // 2.5 MHz MDC
	ClockCode10M = 10000 // 10 MHz MDC

	DefaultClockWhole = 10
	DefaultClockFrac  = 0
)

const (
	// SystemClockHz is the RP2040 system clock the divisors are computed for
	SystemClockHz = 125_000_000

	// SMICyclesPerBit is the number of state machine cycles in one MDC
	// period of the SMI program.
	SMICyclesPerBit = 5
)

// ClockDivisor is a PIO state machine clock divisor: whole + frac/256.
type ClockDivisor struct {
	Whole uint16
	Frac  uint8
}

// ClockDivisorFor maps a Config/Set code to a divisor, assuming
// SMICyclesPerBit cycles per MDC period at SystemClockHz:
// 125 MHz / 10.0 / 5 = 2.5 MHz and 125 MHz / 2.5 / 5 = 10 MHz.
// ok is false for code 0, which the hardware reads as divide-by-65536, and
// for codes that do not fit the 16-bit integer divisor.
func ClockDivisorFor(code uint32) (div ClockDivisor, ok bool) {
	switch code {
	case 0:
		return ClockDivisor{}, false
	case ClockCode2M5:
		return ClockDivisor{Whole: DefaultClockWhole, Frac: DefaultClockFrac}, true
	case ClockCode10M:
		return ClockDivisor{Whole: 2, Frac: 128}, true
	}
	if code > 0xFFFF {
		return ClockDivisor{}, false
	}
	return ClockDivisor{Whole: uint16(code)}, true
}

// MDCFrequency returns the MDC rate in Hz that div produces from a system
// clock of sysHz.
func MDCFrequency(sysHz uint32, div ClockDivisor) uint32 {
	scaled := uint64(div.Whole)<<8 | uint64(div.Frac)
	if scaled == 0 {
		return 0
	}
	return uint32(uint64(sysHz) << 8 / (scaled * SMICyclesPerBit))
}
