package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/compose"
	"github.com/stackready/stackready/internal/config"
	"github.com/stackready/stackready/internal/probe"
	"github.com/stackready/stackready/internal/status"
)

// RuntimeProbe reports which services are currently running.
type RuntimeProbe interface {
	ListRunning(ctx context.Context) (map[string]struct{}, error)
}

// Driver brings the declared service set up or down. Both calls are
// idempotent; neither returns anything beyond success or failure.
type Driver interface {
	Up(ctx context.Context, desired compose.DesiredState) error
	Down(ctx context.Context) error
}

// DeployRecorder receives deployment outcomes and timings. Implemented by
// the metrics collector; a nil recorder disables recording.
type DeployRecorder interface {
	IncDeploys(project string, outcome string)
	ObserveReconcileDuration(duration time.Duration)
}

// Reconciler observes the runtime and decides whether to deploy, skip, or
// fail. It owns no state between calls; every status is computed fresh.
// Calls are not safe to run concurrently: the driver is treated as
// exclusively owned for the duration of a Deploy or Destroy.
type Reconciler struct {
	logger      zerolog.Logger
	runtime     RuntimeProbe
	driver      Driver
	services    []config.ServiceSpec
	probes      map[string]probe.HealthProbe
	settleDelay time.Duration
	sleep       func(context.Context, time.Duration) error
	recorder    DeployRecorder
	project     string
}

// Option customizes reconciler behavior.
type Option func(*Reconciler)

// WithSettleDelay sets the fixed delay between readiness and the final
// status check.
func WithSettleDelay(delay time.Duration) Option {
	return func(r *Reconciler) {
		r.settleDelay = delay
	}
}

// WithSleep overrides how the reconciler waits, for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Reconciler) {
		r.sleep = sleep
	}
}

// WithRecorder reports deploy outcomes for the named project to recorder.
func WithRecorder(recorder DeployRecorder, project string) Option {
	return func(r *Reconciler) {
		r.recorder = recorder
		r.project = project
	}
}

// New constructs a Reconciler for the given required services. probes must
// hold one health probe per service name.
func New(logger zerolog.Logger, runtime RuntimeProbe, driver Driver, services []config.ServiceSpec, probes map[string]probe.HealthProbe, opts ...Option) *Reconciler {
	r := &Reconciler{
		logger:   logger,
		runtime:  runtime,
		driver:   driver,
		services: services,
		probes:   probes,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ComputeStatus observes the runtime once and classifies it. Health probes
// only run when every required service is present; probe failures count as
// unhealthy, never as errors.
func (r *Reconciler) ComputeStatus(ctx context.Context) status.Status {
	running, err := r.runtime.ListRunning(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("runtime observation failed")
		return status.ProbeFailure(&ProbeError{Err: err})
	}

	required := r.requiredSet()
	complete := true
	for _, name := range required {
		if _, ok := running[name]; !ok {
			complete = false
			break
		}
	}

	var healthy map[string]bool
	if complete {
		healthy = make(map[string]bool, len(required))
		for _, svc := range r.services {
			healthProbe, ok := r.probes[svc.Name]
			if !ok {
				healthy[svc.Name] = false
				continue
			}
			if err := healthProbe.Check(ctx); err != nil {
				r.logger.Debug().Err(err).Str("service", svc.Name).Msg("health probe failed")
				healthy[svc.Name] = false
				continue
			}
			healthy[svc.Name] = true
		}
	}

	return status.Classify(required, running, healthy)
}

// ShouldDeploy implements the deploy decision: only a fully healthy stack
// with no forced override skips deployment. Every other state deploys to
// reach a known-good state.
func (r *Reconciler) ShouldDeploy(current status.Status, force bool) bool {
	if force {
		return true
	}
	return current.Kind != status.KindHealthy
}

// Deploy brings the desired state up and waits for it to become healthy.
// Anything already present is torn down first, best-effort: an absent
// deployment is not an error. Success requires a final Healthy status.
func (r *Reconciler) Deploy(ctx context.Context, desired compose.DesiredState) error {
	started := time.Now()
	err := r.deploy(ctx, desired)
	if r.recorder != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		r.recorder.IncDeploys(r.project, outcome)
		r.recorder.ObserveReconcileDuration(time.Since(started))
	}
	return err
}

func (r *Reconciler) deploy(ctx context.Context, desired compose.DesiredState) error {
	current := r.ComputeStatus(ctx)
	if current.Kind != status.KindNotRunning {
		r.logger.Info().Str("status", string(current.Kind)).Msg("tearing down before deploy")
		if err := r.driver.Down(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("best-effort teardown failed, continuing")
		}
	}

	r.logger.Info().Int("services", len(r.services)).Msg("deploying")
	if err := r.driver.Up(ctx, desired); err != nil {
		return &DriverError{Op: "up", Err: err}
	}

	for _, svc := range r.services {
		r.logger.Info().
			Str("service", svc.Name).
			Dur("budget", svc.ReadyTimeout).
			Msg("waiting for readiness")

		err := WaitUntil(ctx, svc.PollInterval, svc.ReadyTimeout, func(ctx context.Context) (bool, error) {
			return r.serviceReady(ctx, svc.Name)
		})
		if err != nil {
			return fmt.Errorf("service %q: %w", svc.Name, err)
		}
	}

	if r.settleDelay > 0 {
		r.logger.Debug().Dur("delay", r.settleDelay).Msg("settling")
		if err := r.sleep(ctx, r.settleDelay); err != nil {
			return err
		}
	}

	final := r.ComputeStatus(ctx)
	if !final.Healthy() {
		return fmt.Errorf("%w: status %s after settle", ErrReadyTimeout, final.Kind)
	}
	r.logger.Info().Msg("deploy complete, infrastructure healthy")
	return nil
}

// Destroy tears the deployment down. The result is not re-verified; the
// driver's own idempotence covers an already-absent deployment.
func (r *Reconciler) Destroy(ctx context.Context) error {
	if err := r.driver.Down(ctx); err != nil {
		return &DriverError{Op: "down", Err: err}
	}
	return nil
}

// serviceReady is the per-service poll condition: present in the runtime
// and passing its health probe. Runtime errors are transient and retried by
// the caller; probe failures simply mean not ready yet.
func (r *Reconciler) serviceReady(ctx context.Context, name string) (bool, error) {
	running, err := r.runtime.ListRunning(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := running[name]; !ok {
		return false, nil
	}
	healthProbe, ok := r.probes[name]
	if !ok {
		return false, nil
	}
	if err := healthProbe.Check(ctx); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *Reconciler) requiredSet() []string {
	names := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		names = append(names, svc.Name)
	}
	return names
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
