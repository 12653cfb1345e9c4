package core

import "sync/atomic"

// QueueCapacity is the number of items a hand-off queue holds.
const QueueCapacity = 3

// queueSlots keeps one slot empty so full and empty are distinguishable.
const queueSlots = QueueCapacity + 1

// Queue is a fixed-capacity single-producer, single-consumer ring. It is
// never used directly: Split hands out one Producer and one Consumer, each of
// which must stay with a single execution context.
type Queue[T any] struct {
	buf   [queueSlots]T
	head  atomic.Uint32 // next slot to dequeue, written by the consumer
	tail  atomic.Uint32 // next slot to enqueue, written by the producer
	split atomic.Bool
}

// Producer is the enqueue half of a Queue.
type Producer[T any] struct {
	q *Queue[T]
}

// Consumer is the dequeue half of a Queue.
type Consumer[T any] struct {
	q *Queue[T]
}

// Split returns the two halves of the queue. It panics if called twice.
func (q *Queue[T]) Split() (*Producer[T], *Consumer[T]) {
	if !q.split.CompareAndSwap(false, true) {
		panic("core: queue already split")
	}
	return &Producer[T]{q: q}, &Consumer[T]{q: q}
}

// Enqueue appends v, or returns false if the queue is full.
func (p *Producer[T]) Enqueue(v T) bool {
	q := p.q
	tail := q.tail.Load()
	next := (tail + 1) % queueSlots
	if next == q.head.Load() {
		return false
	}
	q.buf[tail] = v
	q.tail.Store(next)
	return true
}

// Ready reports whether there is room for another item.
func (p *Producer[T]) Ready() bool {
	q := p.q
	return (q.tail.Load()+1)%queueSlots != q.head.Load()
}

// Len returns the number of queued items as seen by the producer.
func (p *Producer[T]) Len() int { return p.q.len() }

// Dequeue removes the oldest item.
func (c *Consumer[T]) Dequeue() (T, bool) {
	q := c.q
	var zero T
	head := q.head.Load()
	if head == q.tail.Load() {
		return zero, false
	}
	v := q.buf[head]
	q.buf[head] = zero
	q.head.Store((head + 1) % queueSlots)
	return v, true
}

// Peek returns the oldest item without removing it.
func (c *Consumer[T]) Peek() (T, bool) {
	q := c.q
	head := q.head.Load()
	if head == q.tail.Load() {
		var zero T
		return zero, false
	}
	return q.buf[head], true
}

// Len returns the number of queued items as seen by the consumer.
func (c *Consumer[T]) Len() int { return c.q.len() }

func (q *Queue[T]) len() int {
	head, tail := q.head.Load(), q.tail.Load()
	return int((tail + queueSlots - head) % queueSlots)
}
