// Package metrics exposes Prometheus collectors for configuration changes.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proxy-config-guard/internal/model"
)

type Metrics struct {
	registry *prometheus.Registry

	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	throttled        prometheus.Counter
	rollbacks        prometheus.Counter
	backups          *prometheus.CounterVec
	entities         *prometheus.GaugeVec
	skippedFiles     prometheus.Gauge
	engineStatus     *prometheus.GaugeVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcg_mutations_total",
				Help: "Configuration mutations by entity, operation and outcome",
			},
			[]string{"entity", "operation", "outcome"},
		),
		mutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pcg_mutation_duration_seconds",
				Help:    "Time spent holding the write lock per mutation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity"},
		),
		throttled: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcg_mutations_throttled_total",
			Help: "Mutations rejected by the per-actor change limit",
		}),
		rollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcg_rollbacks_total",
			Help: "Mutations rolled back by re-applying their backup",
		}),
		backups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcg_backups_total",
				Help: "Backups taken by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		entities: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pcg_config_entities",
				Help: "Entities in the last loaded configuration",
			},
			[]string{"kind"},
		),
		skippedFiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pcg_config_skipped_files",
			Help: "Dynamic files skipped during the last load",
		}),
		engineStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pcg_engine_status",
				Help: "Last observed engine status (1 for the current status)",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

func (m *Metrics) ObserveMutation(entity, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(entity, operation, outcome).Inc()
	m.mutationDuration.WithLabelValues(entity).Observe(elapsed.Seconds())
}

func (m *Metrics) Throttled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}

func (m *Metrics) RolledBack() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

func (m *Metrics) BackupTaken(kind string, err error) {
	if m == nil {
		return
	}
	outcome := model.AuditOutcomeSuccess
	if err != nil {
		outcome = model.AuditOutcomeFailure
	}
	m.backups.WithLabelValues(kind, outcome).Inc()
}

// SetState records entity counts of a freshly loaded state
func (m *Metrics) SetState(state *model.ConfigState) {
	if m == nil || state == nil {
		return
	}
	m.entities.WithLabelValues("route").Set(float64(len(state.Routes)))
	m.entities.WithLabelValues("middleware").Set(float64(len(state.Middlewares)))
	m.entities.WithLabelValues("service").Set(float64(len(state.Services)))
	m.skippedFiles.Set(float64(len(state.SkippedFiles)))
}

func (m *Metrics) SetEngineStatus(status string) {
	if m == nil {
		return
	}
	m.engineStatus.Reset()
	m.engineStatus.WithLabelValues(status).Set(1)
}
