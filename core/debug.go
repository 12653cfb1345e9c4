package core

import "picobridge/protocol"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// PipelineEvent captures one step of a request's trip through the bridge
// for post-mortem analysis
type PipelineEvent struct {
	EventType uint8  // Event type code
	Tag       uint8  // Interface, host or pin, depending on the event
	Value1    uint32 // Context-dependent value (usually proc id)
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtValidated  = 1 // Request passed validation and was queued
	EvtRejected   = 2 // Request failed validation
	EvtDispatched = 3 // Word handed to the device channel
	EvtCompleted  = 4 // Device channel signalled completion
	EvtRouted     = 5 // Reply written to its origin transport
	EvtDropped    = 6 // Request or reply lost to a full queue
	EvtSpurious   = 7 // Completion with nothing outstanding
	EvtPinSet     = 8 // GPIO output changed
	EvtClockSet   = 9 // MDC divisor changed
	EvtTaskFault  = 10
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]PipelineEvent
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures an event in the ring buffer. It never blocks and may
// be called from interrupt handlers.
func RecordEvent(eventType, tag uint8, value1, value2 uint32) {
	state := disableInterrupts()
	idx := eventRingHead
	eventRing[idx] = PipelineEvent{
		EventType: eventType,
		Tag:       tag,
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	restoreInterrupts(state)
}

// Events returns the captured events, oldest first
func Events() []PipelineEvent {
	out := make([]PipelineEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns the printable name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtValidated:
		return "VALIDATED"
	case EvtRejected:
		return "REJECTED"
	case EvtDispatched:
		return "DISPATCHED"
	case EvtCompleted:
		return "COMPLETED"
	case EvtRouted:
		return "ROUTED"
	case EvtDropped:
		return "DROPPED!"
	case EvtSpurious:
		return "SPURIOUS!"
	case EvtPinSet:
		return "PIN_SET"
	case EvtClockSet:
		return "CLOCK_SET"
	case EvtTaskFault:
		return "TASK_FAULT!"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring (call on error or from the stat command)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.EventType) +
			" tag=" + protocol.Utoa(uint32(evt.Tag)) +
			" v1=" + protocol.Utoa(evt.Value1) +
			" v2=" + protocol.Hex32(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = PipelineEvent{}
	}
	eventRingHead = 0
}
