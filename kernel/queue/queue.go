// Package queue provides a fixed-capacity FIFO used to hand messages from
// interrupt handlers to the main loop.
package queue

import "mikango/kernel"

var (
	// ErrFull is returned by Push when the queue holds Capacity elements.
	ErrFull = &kernel.Error{Module: "queue", Message: "queue is full"}

	// ErrEmpty is returned by Pop and Front when the queue holds no elements.
	ErrEmpty = &kernel.Error{Module: "queue", Message: "queue is empty"}
)

// ArrayQueue is a ring buffer over caller-supplied storage. It never
// allocates and never overwrites: pushing into a full queue fails.
//
// ArrayQueue performs no synchronization. When shared with an interrupt
// handler every access must happen inside a sync.CriticalSection.
type ArrayQueue[T any] struct {
	data     []T
	readPos  int
	writePos int
	count    int
}

// Init resets q to an empty queue backed by buf. The capacity of the queue
// is len(buf).
func (q *ArrayQueue[T]) Init(buf []T) {
	q.data = buf
	q.readPos, q.writePos, q.count = 0, 0, 0
}

// Push appends v at the tail of the queue.
func (q *ArrayQueue[T]) Push(v T) *kernel.Error {
	if q.count == len(q.data) {
		return ErrFull
	}

	q.data[q.writePos] = v
	q.count++
	if q.writePos++; q.writePos == len(q.data) {
		q.writePos = 0
	}

	return nil
}

// Pop discards the element at the head of the queue.
func (q *ArrayQueue[T]) Pop() *kernel.Error {
	if q.count == 0 {
		return ErrEmpty
	}

	q.count--
	if q.readPos++; q.readPos == len(q.data) {
		q.readPos = 0
	}

	return nil
}

// Front returns the element at the head of the queue without removing it.
func (q *ArrayQueue[T]) Front() (T, *kernel.Error) {
	if q.count == 0 {
		var zero T
		return zero, ErrEmpty
	}

	return q.data[q.readPos], nil
}

// Count returns the number of queued elements.
func (q *ArrayQueue[T]) Count() int {
	return q.count
}

// Capacity returns the maximum number of elements the queue can hold.
func (q *ArrayQueue[T]) Capacity() int {
	return len(q.data)
}
