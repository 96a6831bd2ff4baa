package internal

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sweeney/button-led/internal/button"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/queue"
	"github.com/sweeney/button-led/internal/status"
	"github.com/sweeney/button-led/internal/toggle"
)

const (
	pinButton = gpio.DefaultPinButton
	pinLED    = gpio.DefaultPinLED
)

type system struct {
	ctrl    *gpio.FakeController
	clock   *gpio.FakeClock
	q       *queue.Queue[logic.ButtonEvent]
	handler *button.Handler
	task    *toggle.Task
	hook    *logtest.Hook
	tracker *status.Tracker
}

// newSystem wires the fakes the same way the daemon wires hardware.
func newSystem(t *testing.T, capacity int) *system {
	t.Helper()
	q, err := queue.New[logic.ButtonEvent](capacity)
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	ctrl := gpio.NewFakeController()
	clock := &gpio.FakeClock{}
	handler := button.NewHandler(pinButton, logic.DefaultDebounceWindow, clock, q.Sender(), button.WithYield(func() {}))

	if err := ctrl.ConfigureOutput(pinLED, logic.ActiveHigh.Level(logic.StateOff)); err != nil {
		t.Fatalf("configure output: %v", err)
	}
	if err := ctrl.ConfigureInput(pinButton, gpio.InputConfig{PullUp: true, Edge: gpio.EdgeFalling}); err != nil {
		t.Fatalf("configure input: %v", err)
	}
	if err := ctrl.RegisterInterrupt(pinButton, handler.Interrupt, pinButton); err != nil {
		t.Fatalf("register interrupt: %v", err)
	}

	logger, hook := logtest.NewNullLogger()
	tracker := status.NewTracker(time.Now(), status.Config{})
	task := toggle.New(q, ctrl, pinLED, logic.ActiveHigh, logrus.NewEntry(logger), tracker)

	return &system{ctrl: ctrl, clock: clock, q: q, handler: handler, task: task, hook: hook, tracker: tracker}
}

// press fires an edge at the given millisecond tick.
func (s *system) press(t *testing.T, atMs int) {
	t.Helper()
	s.clock.Set(time.Duration(atMs) * time.Millisecond)
	if !s.ctrl.Trigger(pinButton) {
		t.Fatal("no interrupt handler registered")
	}
}

// drain runs the task until the queue is empty and returns the final state.
func (s *system) drain(t *testing.T) logic.State {
	t.Helper()
	state := logic.StateOff
	for s.q.Len() > 0 {
		var err error
		state, err = s.task.Step(context.Background())
		if err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	return state
}

func (s *system) ledLevel(t *testing.T) int {
	t.Helper()
	v, err := s.ctrl.Value(pinLED)
	if err != nil {
		t.Fatalf("read led: %v", err)
	}
	return v
}

// TestIntegrationSinglePress: one edge at t=0 turns the LED on.
func TestIntegrationSinglePress(t *testing.T) {
	s := newSystem(t, 10)

	s.press(t, 0)
	state := s.drain(t)

	if state != logic.StateOn {
		t.Errorf("expected ON, got %s", state)
	}
	if s.ledLevel(t) != logic.LevelHigh {
		t.Errorf("expected LED line high, got %d", s.ledLevel(t))
	}
	if len(s.hook.Entries) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(s.hook.Entries))
	}
	if s.hook.LastEntry().Data["led"] != "ON" {
		t.Errorf("expected led=ON in log record, got %v", s.hook.LastEntry().Data["led"])
	}
}

// TestIntegrationBounce: edges at 0, 10, 20, 60ms give two toggles.
func TestIntegrationBounce(t *testing.T) {
	s := newSystem(t, 10)

	for _, ms := range []int{0, 10, 20, 60} {
		s.press(t, ms)
	}

	stats := s.handler.Stats()
	if stats.Accepted != 2 || stats.Rejected != 2 {
		t.Errorf("expected 2 accepted and 2 rejected, got %+v", stats)
	}

	state := s.drain(t)
	if state != logic.StateOff {
		t.Errorf("two toggles from OFF should end OFF, got %s", state)
	}
	if s.ledLevel(t) != logic.LevelLow {
		t.Errorf("expected LED line low, got %d", s.ledLevel(t))
	}

	writes := s.ctrl.WritesTo(pinLED)
	if len(writes) != 2 || writes[0] != 1 || writes[1] != 0 {
		t.Errorf("expected writes [1 0], got %v", writes)
	}
}

// TestIntegrationInstantBurst: 15 edges at the same instant are one press.
func TestIntegrationInstantBurst(t *testing.T) {
	s := newSystem(t, 10)

	for i := 0; i < 15; i++ {
		s.press(t, 0)
	}

	if s.q.Len() != 1 {
		t.Errorf("expected 1 queued event, got %d", s.q.Len())
	}
	if stats := s.handler.Stats(); stats.Rejected != 14 {
		t.Errorf("expected 14 rejected, got %d", stats.Rejected)
	}
}

// TestIntegrationOverflowWithStalledConsumer: presses 100ms apart arrive
// faster than a stalled task drains them.
func TestIntegrationOverflowWithStalledConsumer(t *testing.T) {
	s := newSystem(t, 10)

	for i := 0; i < 15; i++ {
		s.press(t, i*100)
		if s.q.Len() > s.q.Cap() {
			t.Fatalf("queue exceeded capacity: %d", s.q.Len())
		}
	}

	stats := s.handler.Stats()
	if stats.Accepted != 10 || stats.Dropped != 5 || stats.Rejected != 0 {
		t.Errorf("expected 10 accepted and 5 dropped, got %+v", stats)
	}

	// Delivery is FIFO by sequence number.
	var seqs []uint64
	for s.q.Len() > 0 {
		if _, err := s.task.Step(context.Background()); err != nil {
			t.Fatalf("step: %v", err)
		}
		seqs = append(seqs, s.tracker.Snapshot().LastSeq)
	}
	if len(seqs) != 10 {
		t.Fatalf("expected 10 deliveries, got %d", len(seqs))
	}
	for i, seq := range seqs {
		if seq != uint64(i+1) {
			t.Errorf("delivery %d: expected seq %d, got %d", i, i+1, seq)
		}
	}

	// 10 toggles from OFF end OFF.
	if s.ledLevel(t) != logic.LevelLow {
		t.Errorf("expected LED line low after 10 toggles, got %d", s.ledLevel(t))
	}

	// Space is free again.
	s.press(t, 2000)
	if s.q.Len() != 1 {
		t.Errorf("expected press after draining to be queued, got len %d", s.q.Len())
	}
	if s.drain(t) != logic.StateOn {
		t.Error("expected 11th toggle to turn the LED on")
	}
}

// TestIntegrationConcurrentTask runs the task on its own goroutine as the
// daemon does and checks ordered delivery.
func TestIntegrationConcurrentTask(t *testing.T) {
	s := newSystem(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.task.Run(ctx)
	}()

	const presses = 25
	for i := 0; i < presses; i++ {
		s.press(t, i*100)
		// Give the task room so nothing is dropped.
		deadline := time.Now().Add(2 * time.Second)
		for s.q.Len() > 0 {
			if time.Now().After(deadline) {
				t.Fatal("task stopped draining")
			}
			time.Sleep(time.Millisecond)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.tracker.Snapshot().Toggles < presses {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d toggles, got %d", presses, s.tracker.Snapshot().Toggles)
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil from Run, got %v", err)
	}

	if got := s.tracker.Snapshot().LastSeq; got != presses {
		t.Errorf("expected last seq %d, got %d", presses, got)
	}
	// Odd number of toggles leaves the LED on.
	if s.ledLevel(t) != logic.LevelHigh {
		t.Errorf("expected LED line high, got %d", s.ledLevel(t))
	}
}
