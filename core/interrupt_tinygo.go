//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts around arbiter bookkeeping that is
// shared with interrupt handlers (the pending set), returning the old mask.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the mask saved by disableInterrupts
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
