// Package status provides a thread-safe stats tracker for the button-led daemon.
// It is written by the toggle task and read by the heartbeat loop.
package status

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config contains daemon configuration for display.
type Config struct {
	Backend       string
	ButtonPin     int
	LEDPin        int
	Polarity      string
	DebounceMs    int64
	QueueCapacity int
	HeartbeatMs   int64
}

// EdgeCounts mirrors the interrupt handler's outcome counters.
type EdgeCounts struct {
	Accepted uint64
	Rejected uint64
	Dropped  uint64
	Yields   uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Toggles    uint64
	LastSeq    uint64
	LastToggle time.Time
	Edges      EdgeCounts
	QueueDepth int
	StartTime  time.Time
	Now        time.Time
	Config     Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Fields returns the snapshot as structured log fields.
func (s Snapshot) Fields() logrus.Fields {
	return logrus.Fields{
		"uptime":      s.Uptime().Truncate(time.Second).String(),
		"toggles":     s.Toggles,
		"last_seq":    s.LastSeq,
		"accepted":    s.Edges.Accepted,
		"rejected":    s.Edges.Rejected,
		"dropped":     s.Edges.Dropped,
		"yields":      s.Edges.Yields,
		"queue_depth": s.QueueDepth,
	}
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
	}
}

// RecordToggle counts one LED toggle caused by the event with the given
// sequence number. Called by the toggle task.
func (t *Tracker) RecordToggle(seq uint64, at time.Time) {
	t.mu.Lock()
	t.snap.Toggles++
	t.snap.LastSeq = seq
	t.snap.LastToggle = at
	t.mu.Unlock()
}

// SetEdges records the interrupt handler counters and current queue depth.
func (t *Tracker) SetEdges(counts EdgeCounts, queueDepth int) {
	t.mu.Lock()
	t.snap.Edges = counts
	t.snap.QueueDepth = queueDepth
	t.mu.Unlock()
}

// CheckHeartbeat reports whether interval has elapsed since the last
// heartbeat (or startup), and if so starts a new interval at now.
// An interval <= 0 disables heartbeats.
func (t *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
