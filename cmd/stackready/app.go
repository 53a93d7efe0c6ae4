package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/compose"
	"github.com/stackready/stackready/internal/config"
	"github.com/stackready/stackready/internal/docker"
	"github.com/stackready/stackready/internal/logging"
	"github.com/stackready/stackready/internal/metrics"
	"github.com/stackready/stackready/internal/probe"
	"github.com/stackready/stackready/internal/reconcile"
	"github.com/stackready/stackready/internal/state"
	"github.com/stackready/stackready/internal/status"
)

const dockerTimeout = 15 * time.Second

// app bundles everything a command needs after configuration, the stack
// declaration, and the compose file have been loaded and wired together.
type app struct {
	cfg         config.Config
	stack       config.StackFile
	logger      zerolog.Logger
	client      *docker.Client
	reconciler  *reconcile.Reconciler
	desired     compose.DesiredState
	fingerprint string
	store       state.Store
	collector   *metrics.Metrics
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithLevel(cfg.LogLevel)

	stack, err := config.LoadStackFile(configPath)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(stack.ComposeFile)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}
	fingerprint, err := compose.Fingerprint(body)
	if err != nil {
		return nil, err
	}
	desired, err := compose.ParseDesiredState(ctx, body, stack.Project)
	if err != nil {
		return nil, err
	}

	client, err := docker.NewClient(cfg.DockerHost, stack.Project, dockerTimeout)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	probes := make(map[string]probe.HealthProbe, len(stack.Services))
	for _, svc := range stack.Services {
		p, err := probe.New(svc.Probe, svc.Name, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		probes[svc.Name] = p
	}

	collector := metrics.New()
	driver := docker.NewDriver(client, logger)
	reconciler := reconcile.New(logger, client, driver, stack.Services, probes,
		reconcile.WithSettleDelay(stack.SettleDelay),
		reconcile.WithRecorder(collector, stack.Project))

	return &app{
		cfg:         cfg,
		stack:       stack,
		logger:      logger,
		client:      client,
		reconciler:  reconciler,
		desired:     desired,
		fingerprint: fingerprint,
		store:       state.NewFileStore(cfg.StatePath, logger),
		collector:   collector,
	}, nil
}

func (a *app) Close() {
	_ = a.client.Close()
}

// recordSnapshot persists the outcome of an action for later transition
// detection. Persistence failures are logged, never fatal.
func (a *app) recordSnapshot(ctx context.Context, action string, current status.Status) {
	loaded, err := a.store.Load(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("state load failed, skipping snapshot")
		return
	}
	loaded.Projects[a.stack.Project] = state.Snapshot{
		Action:             action,
		StatusKind:         current.Kind,
		Services:           current.Services,
		ComposeFingerprint: a.fingerprint,
		RecordedAt:         time.Now().UTC(),
	}
	if err := a.store.Save(ctx, loaded); err != nil {
		a.logger.Warn().Err(err).Msg("state save failed")
	}
}
