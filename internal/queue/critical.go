//go:build !tinygo

package queue

import (
	"context"
	"sync"
)

// critical guards queue state. Under the Go runtime interrupt context is a
// goroutine delivering GPIO events, so a mutex held for a few instructions
// by either side is sufficient.
type critical struct {
	mu sync.Mutex
}

func (c *critical) enter() { c.mu.Lock() }
func (c *critical) exit()  { c.mu.Unlock() }

// wakeup is a single-slot token. A stale token only causes Receive to
// re-check an empty queue.
type wakeup struct {
	ch chan struct{}
}

func newWakeup() wakeup {
	return wakeup{ch: make(chan struct{}, 1)}
}

func (w wakeup) notify() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w wakeup) wait(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
