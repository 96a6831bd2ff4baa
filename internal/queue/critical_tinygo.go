//go:build tinygo

package queue

import (
	"context"
	"runtime/interrupt"
	"sync/atomic"
	"time"
)

// pollInterval bounds how long a parked consumer sleeps between checks of
// the wake flag. Channel operations are not allowed inside TinyGo interrupt
// handlers, so the producer only sets a flag.
const pollInterval = time.Millisecond

// critical masks interrupts while queue state is touched. The producer runs
// in an ISR, so it cannot be preempted by the consumer and never nests.
type critical struct {
	state interrupt.State
}

func (c *critical) enter() { c.state = interrupt.Disable() }
func (c *critical) exit()  { interrupt.Restore(c.state) }

type wakeup struct {
	pending *atomic.Bool
}

func newWakeup() wakeup {
	return wakeup{pending: new(atomic.Bool)}
}

func (w wakeup) notify() {
	w.pending.Store(true)
}

func (w wakeup) wait(ctx context.Context) error {
	for {
		if w.pending.Swap(false) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(pollInterval)
	}
}
