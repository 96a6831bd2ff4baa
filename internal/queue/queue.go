// Package queue provides a bounded FIFO for handing values from interrupt
// context to a task. Producers get a Sender that can only attempt a
// non-blocking send; the consumer blocks in Receive.
package queue

import (
	"context"
	"errors"
)

// ErrCapacity is returned by New for a non-positive capacity.
var ErrCapacity = errors.New("queue: capacity must be positive")

// Queue is a fixed-capacity FIFO safe for one interrupt-context producer and
// one task-context consumer.
type Queue[T any] struct {
	cs       critical
	wake     wakeup
	buf      []T
	capacity int
	head     int // oldest element
	count    int
	waiters  int // consumers parked in Receive
}

// New allocates a queue holding at most capacity elements.
// All storage is allocated here; sends never allocate.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	return &Queue[T]{
		wake:     newWakeup(),
		buf:      make([]T, capacity),
		capacity: capacity,
	}, nil
}

// Sender returns the producer handle for use in interrupt context.
func (q *Queue[T]) Sender() Sender[T] {
	return Sender[T]{q: q}
}

// Sender is the restricted producer side of a Queue. It exposes only the
// non-blocking send.
type Sender[T any] struct {
	q *Queue[T]
}

// TrySend appends v if there is room. It never sleeps.
// sent is false when the queue is full; v is dropped and the queue is left
// unchanged. woken is true when a consumer was parked waiting for data, in
// which case the caller should yield before returning from its handler.
func (s Sender[T]) TrySend(v T) (sent, woken bool) {
	q := s.q
	q.cs.enter()
	if q.count == q.capacity {
		q.cs.exit()
		return false, false
	}
	q.buf[(q.head+q.count)%q.capacity] = v
	q.count++
	woken = q.waiters > 0
	q.cs.exit()

	if woken {
		q.wake.notify()
	}
	return true, woken
}

// Receive removes and returns the oldest element, parking until one is
// available or ctx is done.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	for {
		q.cs.enter()
		if q.count > 0 {
			v := q.pop()
			q.cs.exit()
			return v, nil
		}
		q.waiters++
		q.cs.exit()

		err := q.wake.wait(ctx)

		q.cs.enter()
		q.waiters--
		q.cs.exit()

		if err != nil {
			var zero T
			return zero, err
		}
	}
}

// TryReceive removes and returns the oldest element without waiting.
func (q *Queue[T]) TryReceive() (T, bool) {
	q.cs.enter()
	defer q.cs.exit()
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// pop must be called inside the critical section with count > 0.
func (q *Queue[T]) pop() T {
	var zero T
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	q.count--
	return v
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.cs.enter()
	n := q.count
	q.cs.exit()
	return n
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}
