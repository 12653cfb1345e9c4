package core

import (
	"strings"
	"testing"
)

func TestResourceCeiling(t *testing.T) {
	a := NewArbiter()
	t1 := a.Bind("t1", 1, func() {})
	t4 := a.Bind("t4", 4, func() {})
	t2 := a.Bind("t2", 2, func() {})

	r := NewResource(a, "shared", 0, t1, t4, t2)
	if r.Ceiling() != 4 {
		t.Errorf("Expected ceiling 4, got %d", r.Ceiling())
	}
	if r.LockFree() {
		t.Error("Expected a locked resource")
	}
}

func TestResourceLockBlocksUsers(t *testing.T) {
	a := NewArbiter()
	var order []string
	var r *Resource[int]
	var high *Task

	high = a.Bind("high", 3, func() {
		r.Lock(func(v *int) {
			*v += 10
			order = append(order, "high")
		})
	})
	// above the ceiling, so it is not held off by the lock
	urgent := a.Bind("urgent", 5, func() { order = append(order, "urgent") })
	low := a.Bind("low", 1, func() {
		r.Lock(func(v *int) {
			if a.Current() != 3 {
				t.Errorf("Expected ceiling priority 3 inside lock, got %d", a.Current())
			}
			a.Pend(high)
			a.Pend(urgent)
			*v = 1
			order = append(order, "low-locked")
		})
		order = append(order, "low-released")
	})
	r = NewResource(a, "counter", 0, low, high)

	a.Pend(low)

	got := strings.Join(order, ",")
	if got != "urgent,low-locked,high,low-released" {
		t.Errorf("Expected urgent,low-locked,high,low-released, got %s", got)
	}
	r.Lock(func(v *int) {
		if *v != 11 {
			t.Errorf("Expected value 11, got %d", *v)
		}
	})
}

func TestResourceUndeclaredUserPanics(t *testing.T) {
	a := NewArbiter()
	user := a.Bind("user", 1, func() {})
	var r *Resource[int]
	var panicked bool
	other := a.Bind("other", 2, func() {
		defer func() { panicked = recover() != nil }()
		r.Lock(func(v *int) {})
	})
	r = NewResource(a, "private", 0, user)

	a.Pend(other)
	if !panicked {
		t.Error("Expected lock from an undeclared task to panic")
	}
}

func TestResourceNestedLockPanics(t *testing.T) {
	a := NewArbiter()
	user := a.Bind("user", 1, func() {})
	r := NewResource(a, "r", 0, user)

	defer func() {
		if recover() == nil {
			t.Error("Expected nested lock to panic")
		}
	}()
	r.Lock(func(v *int) {
		r.Lock(func(v *int) {})
	})
}

func TestLockFreeResource(t *testing.T) {
	a := NewArbiter()
	d := a.Bind("dispatch", 1, func() {})
	rp := a.Bind("reply", 1, func() {})

	r := NewLockFreeResource(a, "in_flight", false, d, rp)
	if !r.LockFree() {
		t.Error("Expected a lock-free resource")
	}
	r.Lock(func(v *bool) {
		if a.Current() != PriorityIdle {
			t.Errorf("Expected lock-free access not to raise priority, got %d", a.Current())
		}
		*v = true
	})
}

func TestLockFreeAcrossPrioritiesPanics(t *testing.T) {
	a := NewArbiter()
	lo := a.Bind("lo", 1, func() {})
	hi := a.Bind("hi", 2, func() {})

	defer func() {
		if recover() == nil {
			t.Error("Expected lock-free resource across priorities to panic")
		}
	}()
	NewLockFreeResource(a, "bad", 0, lo, hi)
}
