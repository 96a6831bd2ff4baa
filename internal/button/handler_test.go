package button

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/queue"
)

const window = 50 * time.Millisecond

func setupHandler(t *testing.T, capacity int) (*Handler, *queue.Queue[logic.ButtonEvent], *gpio.FakeClock, *int) {
	t.Helper()
	q, err := queue.New[logic.ButtonEvent](capacity)
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	clock := &gpio.FakeClock{}
	yields := 0
	h := NewHandler(gpio.DefaultPinButton, window, clock, q.Sender(), WithYield(func() { yields++ }))
	return h, q, clock, &yields
}

func TestSingleEdgeAccepted(t *testing.T) {
	h, q, _, _ := setupHandler(t, 10)

	if got := h.HandleEdge(0); got != Accepted {
		t.Fatalf("expected accepted, got %s", got)
	}

	ev, ok := q.TryReceive()
	if !ok {
		t.Fatal("expected an event in the queue")
	}
	if ev.Pin != 0 {
		t.Errorf("expected pin 0, got %d", ev.Pin)
	}
	if ev.Seq != 1 {
		t.Errorf("expected seq 1, got %d", ev.Seq)
	}
	if ev.At != 0 {
		t.Errorf("expected tick 0, got %v", ev.At)
	}
}

func TestBouncingEdgesRejected(t *testing.T) {
	h, q, clock, _ := setupHandler(t, 10)

	want := map[int]Outcome{0: Accepted, 10: Rejected, 20: Rejected, 60: Accepted}
	for _, tm := range []int{0, 10, 20, 60} {
		clock.Set(time.Duration(tm) * time.Millisecond)
		if got := h.HandleEdge(0); got != want[tm] {
			t.Errorf("edge at %dms: expected %s, got %s", tm, want[tm], got)
		}
	}

	if q.Len() != 2 {
		t.Errorf("expected 2 queued events, got %d", q.Len())
	}
	stats := h.Stats()
	if stats.Accepted != 2 || stats.Rejected != 2 || stats.Dropped != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestArgIsPassedThrough(t *testing.T) {
	h, q, _, _ := setupHandler(t, 10)

	h.Interrupt(17)

	ev, _ := q.TryReceive()
	if ev.Pin != 17 {
		t.Errorf("expected pin 17 from registration arg, got %d", ev.Pin)
	}
}

func TestQueueFullDropsAndStillMovesWindow(t *testing.T) {
	h, q, clock, _ := setupHandler(t, 2)

	for i := 0; i < 2; i++ {
		clock.Set(time.Duration(i) * 100 * time.Millisecond)
		if got := h.HandleEdge(0); got != Accepted {
			t.Fatalf("edge %d: expected accepted, got %s", i, got)
		}
	}

	// Queue is full: passes the filter, is dropped.
	clock.Set(200 * time.Millisecond)
	if got := h.HandleEdge(0); got != Dropped {
		t.Fatalf("expected dropped, got %s", got)
	}

	// The dropped edge still reset the window.
	q.TryReceive()
	clock.Set(230 * time.Millisecond)
	if got := h.HandleEdge(0); got != Rejected {
		t.Errorf("edge 30ms after a dropped edge: expected rejected, got %s", got)
	}

	clock.Set(300 * time.Millisecond)
	if got := h.HandleEdge(0); got != Accepted {
		t.Errorf("expected accepted once space is free, got %s", got)
	}

	stats := h.Stats()
	if stats.Accepted != 3 || stats.Dropped != 1 || stats.Rejected != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if q.Len() != 2 {
		t.Errorf("expected queue at capacity 2, got %d", q.Len())
	}
}

func TestSeqCountsDroppedEdges(t *testing.T) {
	h, q, clock, _ := setupHandler(t, 1)

	clock.Set(0)
	h.HandleEdge(0) // seq 1, queued
	clock.Set(100 * time.Millisecond)
	h.HandleEdge(0) // seq 2, dropped
	q.TryReceive()
	clock.Set(200 * time.Millisecond)
	h.HandleEdge(0) // seq 3, queued

	ev, _ := q.TryReceive()
	if ev.Seq != 3 {
		t.Errorf("expected seq 3 after a drop, got %d", ev.Seq)
	}
}

func TestYieldOnlyWhenConsumerWoken(t *testing.T) {
	h, q, clock, yields := setupHandler(t, 10)

	// Nobody waiting.
	h.HandleEdge(0)
	if *yields != 0 {
		t.Errorf("expected no yield without a waiting consumer, got %d", *yields)
	}
	q.TryReceive()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan logic.ButtonEvent, 1000)
	go func() {
		for {
			ev, err := q.Receive(ctx)
			if err != nil {
				return
			}
			got <- ev
		}
	}()

	// Keep firing edges until one lands while the consumer is parked.
	deadline := time.Now().Add(2 * time.Second)
	for h.Stats().Yields == 0 {
		if time.Now().After(deadline) {
			t.Fatal("consumer was never woken")
		}
		time.Sleep(5 * time.Millisecond)
		clock.Advance(100 * time.Millisecond)
		h.HandleEdge(0)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not receive the event")
	}
	if *yields != 1 {
		t.Errorf("expected 1 yield, got %d", *yields)
	}
}

func TestOutcomeString(t *testing.T) {
	cases := map[Outcome]string{
		Rejected:   "rejected",
		Accepted:   "accepted",
		Dropped:    "dropped",
		Outcome(9): "unknown",
	}
	for o, want := range cases {
		if o.String() != want {
			t.Errorf("expected %q, got %q", want, o.String())
		}
	}
}
