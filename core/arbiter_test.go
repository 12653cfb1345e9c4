package core

import (
	"strings"
	"testing"
)

func TestArbiterBindOrder(t *testing.T) {
	a := NewArbiter()
	low := a.Bind("low", 1, func() {})
	high := a.Bind("high", 5, func() {})
	mid := a.Bind("mid", 3, func() {})

	want := []*Task{high, mid, low}
	for i, task := range a.tasks {
		if task != want[i] {
			t.Errorf("Expected %s at position %d, got %s", want[i].Name(), i, task.Name())
		}
	}
}

func TestArbiterBindIdlePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected Bind at idle priority to panic")
		}
	}()
	NewArbiter().Bind("idle", PriorityIdle, func() {})
}

func TestArbiterPendFromISRDefers(t *testing.T) {
	a := NewArbiter()
	ran := 0
	task := a.Bind("task", 2, func() { ran++ })

	a.PendFromISR(task)
	if ran != 0 {
		t.Error("Expected PendFromISR not to run the task")
	}
	if !a.IsPending(task) {
		t.Error("Expected task to be pending")
	}

	// Pending twice before running coalesces into one run
	a.PendFromISR(task)
	if !a.Poll() {
		t.Error("Expected Poll to report work")
	}
	if ran != 1 {
		t.Errorf("Expected 1 run, got %d", ran)
	}
	if a.Poll() {
		t.Error("Expected second Poll to be idle")
	}
}

func TestArbiterPriorityOrder(t *testing.T) {
	a := NewArbiter()
	var order []string
	low := a.Bind("low", 1, func() { order = append(order, "low") })
	mid := a.Bind("mid", 3, func() { order = append(order, "mid") })
	high := a.Bind("high", 5, func() { order = append(order, "high") })

	a.PendFromISR(low)
	a.PendFromISR(high)
	a.PendFromISR(mid)
	a.Poll()

	got := strings.Join(order, ",")
	if got != "high,mid,low" {
		t.Errorf("Expected high,mid,low, got %s", got)
	}
}

func TestArbiterPreemption(t *testing.T) {
	a := NewArbiter()
	var order []string
	var high, low *Task
	high = a.Bind("high", 4, func() {
		order = append(order, "high")
		if a.Current() != 4 {
			t.Errorf("Expected current priority 4, got %d", a.Current())
		}
	})
	low = a.Bind("low", 1, func() {
		order = append(order, "low-start")
		a.Pend(high)
		order = append(order, "low-end")
	})

	a.Pend(low)

	got := strings.Join(order, ",")
	if got != "low-start,high,low-end" {
		t.Errorf("Expected low-start,high,low-end, got %s", got)
	}
	if a.Current() != PriorityIdle {
		t.Errorf("Expected idle priority after run, got %d", a.Current())
	}
}

func TestArbiterNoSelfReentry(t *testing.T) {
	a := NewArbiter()
	depth, maxDepth, runs := 0, 0, 0
	var task *Task
	task = a.Bind("task", 2, func() {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		runs++
		if runs == 1 {
			// Pending ourselves while running must not nest
			a.Pend(task)
		}
		depth--
	})

	a.Pend(task)
	if maxDepth != 1 {
		t.Errorf("Expected no reentry, got depth %d", maxDepth)
	}
	if runs != 2 {
		t.Errorf("Expected the self-pend to run once more, got %d runs", runs)
	}
}

func TestArbiterLowerPriorityWaits(t *testing.T) {
	a := NewArbiter()
	var order []string
	var low *Task
	low = a.Bind("low", 1, func() { order = append(order, "low") })
	high := a.Bind("high", 3, func() {
		a.Pend(low)
		order = append(order, "high")
	})

	a.Pend(high)
	got := strings.Join(order, ",")
	if got != "high,low" {
		t.Errorf("Expected high,low, got %s", got)
	}
}

func TestArbiterFaultRecovery(t *testing.T) {
	a := NewArbiter()
	var faulted *Task
	a.OnFault = func(task *Task, reason interface{}) { faulted = task }
	bad := a.Bind("bad", 2, func() { panic("boom") })
	ran := false
	good := a.Bind("good", 1, func() { ran = true })

	a.PendFromISR(bad)
	a.PendFromISR(good)
	a.Poll()

	if faulted != bad {
		t.Error("Expected OnFault to receive the panicking task")
	}
	if a.Faults() != 1 {
		t.Errorf("Expected 1 fault, got %d", a.Faults())
	}
	if !ran {
		t.Error("Expected arbiter to keep running after a fault")
	}
	if a.Current() != PriorityIdle || a.Active() != nil {
		t.Error("Expected arbiter back at idle after a fault")
	}
	if bad.Runs() != 0 || good.Runs() != 1 {
		t.Errorf("Expected run counts 0/1, got %d/%d", bad.Runs(), good.Runs())
	}
}

func TestArbiterForeignTaskPanics(t *testing.T) {
	a, b := NewArbiter(), NewArbiter()
	task := b.Bind("task", 1, func() {})

	defer func() {
		if recover() == nil {
			t.Error("Expected pending a foreign task to panic")
		}
	}()
	a.Pend(task)
}
