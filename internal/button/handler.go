// Package button turns raw edges on the button line into debounced
// ButtonEvents for the toggle task.
package button

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/queue"
)

// Outcome is what the handler did with one edge.
type Outcome int

const (
	// Rejected: the edge fell inside the debounce window.
	Rejected Outcome = iota
	// Accepted: the edge was queued.
	Accepted
	// Dropped: the edge passed the filter but the queue was full.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// Stats counts handler outcomes since startup.
type Stats struct {
	Accepted uint64
	Rejected uint64
	Dropped  uint64
	Yields   uint64
}

// Handler is the debounced interrupt handler. HandleEdge runs in interrupt
// context: it never blocks, allocates or logs. It only holds the send side
// of the queue.
type Handler struct {
	pin    int
	clock  gpio.Clock
	filter *logic.Debouncer
	tx     queue.Sender[logic.ButtonEvent]
	yield  func()

	// Written only by HandleEdge, which gpio backends never run concurrently
	// for one line.
	seq uint64

	accepted atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
	yields   atomic.Uint64
}

// Option configures a Handler.
type Option func(*Handler)

// WithYield replaces the hook called when a send wakes the consumer.
// The default is runtime.Gosched, or a no-op under TinyGo where the handler
// runs in a hardware ISR.
func WithYield(yield func()) Option {
	return func(h *Handler) {
		h.yield = yield
	}
}

// NewHandler creates a handler for pin that filters edges with the given
// debounce window and pushes accepted presses through tx.
func NewHandler(pin int, window time.Duration, clock gpio.Clock, tx queue.Sender[logic.ButtonEvent], opts ...Option) *Handler {
	h := &Handler{
		pin:    pin,
		clock:  clock,
		filter: logic.NewDebouncer(window),
		tx:     tx,
		yield:  defaultYield,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleEdge processes one edge. arg is the context value given at
// registration, the pin that fired.
func (h *Handler) HandleEdge(arg int) Outcome {
	now := h.clock.NowFromISR()

	if !h.filter.Accept(now) {
		h.rejected.Add(1)
		return Rejected
	}

	h.seq++
	sent, woken := h.tx.TrySend(logic.ButtonEvent{Pin: arg, Seq: h.seq, At: now})
	if !sent {
		// No retry: the event is lost, the debounce reference still moves.
		h.dropped.Add(1)
		return Dropped
	}
	h.accepted.Add(1)

	if woken {
		h.yields.Add(1)
		h.yield()
	}
	return Accepted
}

// Interrupt adapts HandleEdge to gpio.InterruptHandler.
func (h *Handler) Interrupt(arg int) {
	h.HandleEdge(arg)
}

// Pin returns the input pin the handler serves.
func (h *Handler) Pin() int {
	return h.pin
}

// Stats returns the outcome counters. Safe to call from any goroutine.
func (h *Handler) Stats() Stats {
	return Stats{
		Accepted: h.accepted.Load(),
		Rejected: h.rejected.Load(),
		Dropped:  h.dropped.Load(),
		Yields:   h.yields.Load(),
	}
}
