package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest reconciliation timing details.
type Snapshot struct {
	LastReconcileTime   *time.Time `json:"last_reconcile_time"`
	ReconcileDurationMS int64      `json:"reconcile_duration_ms"`
	ServicesObserved    int        `json:"services_observed"`
}

// Tracker records reconciliation timing for health endpoints.
type Tracker struct {
	mu               sync.RWMutex
	lastReconcile    time.Time
	duration         time.Duration
	servicesObserved int
	ready            bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordReconcile updates reconciliation timing and readiness.
func (t *Tracker) RecordReconcile(duration time.Duration, servicesObserved int) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastReconcile = now
	t.duration = duration
	t.servicesObserved = servicesObserved
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastReconcile.IsZero() {
		value := t.lastReconcile
		last = &value
	}
	return Snapshot{
		LastReconcileTime:   last,
		ReconcileDurationMS: int64(t.duration / time.Millisecond),
		ServicesObserved:    t.servicesObserved,
	}
}

// Ready reports whether at least one reconciliation has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last reconciliation completed within 2x the
// poll interval.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastReconcile.IsZero() {
		return false
	}
	return now.Sub(t.lastReconcile) <= 2*pollInterval
}
