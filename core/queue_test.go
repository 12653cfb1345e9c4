package core

import "testing"

func TestQueueCapacity(t *testing.T) {
	var q Queue[int]
	prod, cons := q.Split()

	for i := 0; i < QueueCapacity; i++ {
		if !prod.Enqueue(i) {
			t.Fatalf("Enqueue %d failed before capacity", i)
		}
	}
	if prod.Ready() {
		t.Error("Expected producer not ready on a full queue")
	}
	if prod.Enqueue(99) {
		t.Error("Expected fourth enqueue to fail")
	}
	if cons.Len() != QueueCapacity {
		t.Errorf("Expected length %d, got %d", QueueCapacity, cons.Len())
	}

	for i := 0; i < QueueCapacity; i++ {
		v, ok := cons.Dequeue()
		if !ok || v != i {
			t.Errorf("Expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
	if _, ok := cons.Dequeue(); ok {
		t.Error("Expected empty queue")
	}
}

func TestQueueWraparound(t *testing.T) {
	var q Queue[uint32]
	prod, cons := q.Split()

	// Cycle through the ring several times with a partly full queue
	next := uint32(0)
	want := uint32(0)
	for round := 0; round < 10; round++ {
		for i := 0; i < 2; i++ {
			if !prod.Enqueue(next) {
				t.Fatalf("Round %d: enqueue failed", round)
			}
			next++
		}
		for i := 0; i < 2; i++ {
			v, ok := cons.Dequeue()
			if !ok || v != want {
				t.Fatalf("Round %d: expected %d, got %d (ok=%v)", round, want, v, ok)
			}
			want++
		}
	}
	if prod.Len() != 0 {
		t.Errorf("Expected empty queue, got length %d", prod.Len())
	}
}

func TestQueuePeek(t *testing.T) {
	var q Queue[string]
	prod, cons := q.Split()

	if _, ok := cons.Peek(); ok {
		t.Error("Expected Peek on empty queue to fail")
	}
	prod.Enqueue("a")
	prod.Enqueue("b")
	if v, _ := cons.Peek(); v != "a" {
		t.Errorf("Expected 'a', got '%s'", v)
	}
	if cons.Len() != 2 {
		t.Errorf("Expected Peek to leave 2 items, got %d", cons.Len())
	}
}

func TestQueueSplitTwice(t *testing.T) {
	var q Queue[int]
	q.Split()

	defer func() {
		if recover() == nil {
			t.Error("Expected second Split to panic")
		}
	}()
	q.Split()
}
