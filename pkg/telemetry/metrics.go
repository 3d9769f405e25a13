package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for Kiln.
type Metrics struct {
	config MetricsConfig

	// Translation metrics
	translationsTotal   *prometheus.CounterVec
	translationDuration *prometheus.HistogramVec

	// Watch evaluation metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec

	// Ingestion metrics
	samplesIngested *prometheus.CounterVec
	samplesIgnored  *prometheus.CounterVec

	// Action metrics
	actionsDispatched *prometheus.CounterVec

	// System metrics
	watchRulesManaged prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		translationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "template_translations_total",
				Help:      "Total number of template translations",
			},
			[]string{"status"},
		),
		translationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "template_translation_duration_seconds",
				Help:      "Duration of template translation in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_evaluations_total",
				Help:      "Total number of watch rule evaluations by resulting state",
			},
			[]string{"state"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "watch_evaluation_duration_seconds",
				Help:      "Duration of watch rule evaluation in seconds",
				Buckets:   buckets,
			},
			[]string{"state"},
		),

		samplesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_samples_ingested_total",
				Help:      "Total number of metric samples accepted for buffering",
			},
			[]string{"metric"},
		),
		samplesIgnored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_samples_ignored_total",
				Help:      "Total number of metric samples silently dropped",
			},
			[]string{"reason"},
		),

		actionsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_actions_dispatched_total",
				Help:      "Total number of actions resolved for state transitions",
			},
			[]string{"state"},
		),

		watchRulesManaged: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watch_rules_managed",
				Help:      "Current number of stored watch rules",
			},
		),
	}

	registry.MustRegister(
		m.translationsTotal,
		m.translationDuration,
		m.evaluationsTotal,
		m.evaluationDuration,
		m.samplesIngested,
		m.samplesIgnored,
		m.actionsDispatched,
		m.watchRulesManaged,
	)

	return m, nil
}

// NopMetrics returns a disabled metrics instance whose record methods are
// all no-ops.
func NopMetrics() *Metrics {
	return &Metrics{}
}

// Translation Metrics

// RecordTranslation records one template translation with its outcome.
func (m *Metrics) RecordTranslation(status string, duration time.Duration) {
	if m.translationsTotal == nil {
		return
	}
	m.translationsTotal.WithLabelValues(status).Inc()
	m.translationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Watch Metrics

// RecordEvaluation records a completed watch rule evaluation.
func (m *Metrics) RecordEvaluation(state string, duration time.Duration) {
	if m.evaluationsTotal == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(state).Inc()
	m.evaluationDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// RecordSampleIngested records an accepted metric sample.
func (m *Metrics) RecordSampleIngested(metric string) {
	if m.samplesIngested == nil {
		return
	}
	m.samplesIngested.WithLabelValues(metric).Inc()
}

// RecordSampleIgnored records a silently dropped metric sample.
func (m *Metrics) RecordSampleIgnored(reason string) {
	if m.samplesIgnored == nil {
		return
	}
	m.samplesIgnored.WithLabelValues(reason).Inc()
}

// RecordActionsDispatched records the actions resolved for a transition.
func (m *Metrics) RecordActionsDispatched(state string, count int) {
	if m.actionsDispatched == nil {
		return
	}
	m.actionsDispatched.WithLabelValues(state).Add(float64(count))
}

// SetWatchRuleCount sets the current number of stored watch rules.
func (m *Metrics) SetWatchRuleCount(count float64) {
	if m.watchRulesManaged == nil {
		return
	}
	m.watchRulesManaged.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
