package watch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/healthcheck"
	"github.com/stackready/stackready/internal/metrics"
	"github.com/stackready/stackready/internal/notify"
	"github.com/stackready/stackready/internal/state"
	"github.com/stackready/stackready/internal/status"
	"github.com/stackready/stackready/internal/transition"
)

// Ticker is the minimal interface needed for driving the watch loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// StatusSource computes the current stack status.
type StatusSource interface {
	ComputeStatus(ctx context.Context) status.Status
}

// Watcher periodically recomputes stack status, detects service
// transitions against the persisted snapshot, and notifies.
type Watcher struct {
	logger        zerolog.Logger
	project       string
	pollInterval  time.Duration
	source        StatusSource
	store         state.Store
	notifier      notify.Notifier
	collector     *metrics.Metrics
	tracker       *healthcheck.Tracker
	tickerFactory func(time.Duration) Ticker
	fingerprint   string
}

// Option customizes watcher behavior.
type Option func(*Watcher)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(w *Watcher) {
		w.tickerFactory = factory
	}
}

// WithNotifier sets the notifier for detected transitions.
func WithNotifier(notifier notify.Notifier) Option {
	return func(w *Watcher) {
		w.notifier = notifier
	}
}

// WithMetrics sets the metrics collector updated after each pass.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.collector = collector
	}
}

// WithTracker sets the health tracker updated after each pass.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(w *Watcher) {
		w.tracker = tracker
	}
}

// WithComposeFingerprint records the fingerprint of the compose body the
// running stack was observed against.
func WithComposeFingerprint(fingerprint string) Option {
	return func(w *Watcher) {
		w.fingerprint = fingerprint
	}
}

// New constructs a Watcher.
func New(logger zerolog.Logger, project string, pollInterval time.Duration, source StatusSource, store state.Store, opts ...Option) *Watcher {
	w := &Watcher{
		logger:       logger,
		project:      project,
		pollInterval: pollInterval,
		source:       source,
		store:        store,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the watch loop and blocks until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Observe immediately on startup
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error().Err(err).Msg("initial watch pass failed")
	}

	ticker := w.tickerFactory(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("watcher stopped")
			return nil
		case <-ticker.C():
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error().Err(err).Msg("watch pass failed")
			}
		}
	}
}

// RunOnce executes a single observe/diff/notify pass.
func (w *Watcher) RunOnce(ctx context.Context) error {
	started := time.Now()

	current := w.source.ComputeStatus(ctx)

	loaded, err := w.store.Load(ctx)
	if err != nil {
		return err
	}
	var previous *state.Snapshot
	if existing, ok := loaded.Projects[w.project]; ok {
		copied := existing
		previous = &copied
	}

	transitions := transition.Detect(previous, current)
	w.logTransitions(transitions)

	if w.notifier != nil && len(transitions) > 0 {
		if err := w.notifier.Notify(ctx, w.project, transitions); err != nil {
			w.logger.Error().Err(err).Msg("notification failed")
		}
	}

	loaded.Projects[w.project] = state.Snapshot{
		Action:             "watch",
		StatusKind:         current.Kind,
		Services:           current.Services,
		ComposeFingerprint: w.fingerprint,
		RecordedAt:         time.Now().UTC(),
	}
	if err := w.store.Save(ctx, loaded); err != nil {
		return err
	}

	w.record(current, time.Since(started))

	return nil
}

func (w *Watcher) logTransitions(transitions []transition.ServiceTransition) {
	for _, change := range transitions {
		event := w.logger.Info()
		switch change.Current {
		case status.ServiceMissing, status.ServiceUnhealthy:
			event = w.logger.Warn()
		}
		event.
			Str("project", w.project).
			Str("service", change.Name).
			Str("previous", string(change.Previous)).
			Str("current", string(change.Current)).
			Msg("service transition detected")
	}
}

func (w *Watcher) record(current status.Status, elapsed time.Duration) {
	if current.Kind == status.KindError {
		w.collector.IncProbeErrors()
	}

	counts := map[status.ServiceState]int{}
	for _, serviceState := range current.Services {
		counts[serviceState]++
	}
	for _, serviceState := range []status.ServiceState{status.ServiceOK, status.ServiceMissing, status.ServiceUnhealthy, status.ServiceUnknown} {
		w.collector.SetServices(w.project, string(serviceState), counts[serviceState])
	}

	w.collector.ObserveReconcileDuration(elapsed)
	w.collector.SetLastReconcileTimestamp(time.Now().UTC())
	w.tracker.RecordReconcile(elapsed, len(current.Services))
}
