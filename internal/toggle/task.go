// Package toggle implements the task that drains button events and flips
// the LED.
package toggle

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/status"
)

// Receiver is the consumer side of the event queue.
type Receiver interface {
	Receive(ctx context.Context) (logic.ButtonEvent, error)
}

// Task owns the LED state. Nothing outside Step reads or writes it.
type Task struct {
	rx       Receiver
	out      gpio.Output
	ledPin   int
	polarity logic.Polarity
	log      *logrus.Entry
	tracker  *status.Tracker
	now      func() time.Time

	led logic.Toggle
}

// New creates a task that drives ledPin through out. tracker may be nil.
func New(rx Receiver, out gpio.Output, ledPin int, polarity logic.Polarity, log *logrus.Entry, tracker *status.Tracker) *Task {
	return &Task{
		rx:       rx,
		out:      out,
		ledPin:   ledPin,
		polarity: polarity,
		log:      log,
		tracker:  tracker,
		now:      time.Now,
	}
}

// Run processes events until ctx is cancelled. The only suspension point is
// the queue receive. Returns nil on cancellation.
func (t *Task) Run(ctx context.Context) error {
	for {
		if _, err := t.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Step waits for one event, flips the LED and drives the output.
// A failed output write is logged and does not stop the task.
func (t *Task) Step(ctx context.Context) (logic.State, error) {
	ev, err := t.rx.Receive(ctx)
	if err != nil {
		return t.led.State(), err
	}

	state := t.led.Flip()
	level := t.polarity.Level(state)

	entry := t.log.WithFields(logrus.Fields{
		"pin": ev.Pin,
		"seq": ev.Seq,
		"led": string(state),
	})
	if err := t.out.SetOutput(t.ledPin, level); err != nil {
		entry.WithError(err).Error("failed to drive LED")
	} else {
		entry.Infof("button pressed, LED is now %s", state)
	}

	if t.tracker != nil {
		t.tracker.RecordToggle(ev.Seq, t.now())
	}
	return state, nil
}
