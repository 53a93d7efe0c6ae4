package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/healthcheck"
	"github.com/stackready/stackready/internal/metrics"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type endpoint struct {
	name string
	port int
	mux  *http.ServeMux
}

// Start launches the observability HTTP listeners as configured. A zero
// port disables the corresponding surface; when the health and metrics
// ports collide both route sets share one listener. Listeners shut down
// gracefully when ctx is canceled.
func Start(ctx context.Context, logger zerolog.Logger, pollInterval time.Duration, tracker *healthcheck.Tracker, collector *metrics.Metrics, healthPort, metricsPort int) {
	endpoints := plan(pollInterval, tracker, collector, healthPort, metricsPort)
	for _, ep := range endpoints {
		serve(ctx, logger.With().Str("endpoint", ep.name).Logger(), ep)
	}
}

func plan(pollInterval time.Duration, tracker *healthcheck.Tracker, collector *metrics.Metrics, healthPort, metricsPort int) []endpoint {
	shared := healthPort > 0 && healthPort == metricsPort

	endpoints := make([]endpoint, 0, 2)
	if healthPort > 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", healthcheck.HealthHandler(tracker, pollInterval))
		mux.HandleFunc("/readyz", healthcheck.ReadyHandler(tracker))
		name := "health"
		if shared {
			mux.Handle("/metrics", collector.Handler())
			name = "health+metrics"
		}
		endpoints = append(endpoints, endpoint{name: name, port: healthPort, mux: mux})
	}
	if metricsPort > 0 && !shared {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		endpoints = append(endpoints, endpoint{name: "metrics", port: metricsPort, mux: mux})
	}
	return endpoints
}

func serve(ctx context.Context, logger zerolog.Logger, ep endpoint) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", ep.port),
		Handler:           ep.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info().Int("port", ep.port).Msg("observability listener starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("observability listener failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("listener shutdown failed")
		}
	}()
}
