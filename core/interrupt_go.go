//go:build !tinygo

package core

// State is a placeholder for the saved interrupt mask on regular Go
type State uintptr

// disableInterrupts is a no-op on regular Go, where tests drive the arbiter
// from a single goroutine.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state State) {}
