package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for stackready.
type Metrics struct {
	registry                 *prometheus.Registry
	reconcileDurationSeconds prometheus.Histogram
	servicesTotal            *prometheus.GaugeVec
	deploysTotal             *prometheus.CounterVec
	probeErrorsTotal         prometheus.Counter
	lastReconcileGauge       prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		reconcileDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackready_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		servicesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackready_services",
			Help: "Required services by project and observed state.",
		}, []string{"project", "state"}),
		deploysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackready_deploys_total",
			Help: "Total deployments by project and outcome.",
		}, []string{"project", "outcome"}),
		probeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackready_probe_errors_total",
			Help: "Total runtime probe failures.",
		}),
		lastReconcileGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackready_last_reconcile_timestamp",
			Help: "Unix timestamp of the last completed reconciliation.",
		}),
	}

	registry.MustRegister(
		m.reconcileDurationSeconds,
		m.servicesTotal,
		m.deploysTotal,
		m.probeErrorsTotal,
		m.lastReconcileGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReconcileDuration records the duration of one reconciliation pass.
func (m *Metrics) ObserveReconcileDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDurationSeconds.Observe(duration.Seconds())
}

// SetServices sets the services gauge for the given project/state.
func (m *Metrics) SetServices(project string, state string, value int) {
	if m == nil {
		return
	}
	m.servicesTotal.WithLabelValues(project, state).Set(float64(value))
}

// IncDeploys increments the deployment counter for the given project/outcome.
func (m *Metrics) IncDeploys(project string, outcome string) {
	if m == nil {
		return
	}
	m.deploysTotal.WithLabelValues(project, outcome).Inc()
}

// IncProbeErrors increments the runtime probe error counter.
func (m *Metrics) IncProbeErrors() {
	if m == nil {
		return
	}
	m.probeErrorsTotal.Inc()
}

// SetLastReconcileTimestamp sets the last completed reconciliation time.
func (m *Metrics) SetLastReconcileTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastReconcileGauge.Set(float64(t.Unix()))
}
