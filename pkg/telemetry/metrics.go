package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for Pipewright.
type Metrics struct {
	config MetricsConfig

	// Analysis metrics
	analysesStarted   *prometheus.CounterVec
	analysesCompleted *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec

	// Generation metrics
	generationsStarted   *prometheus.CounterVec
	generationsCompleted *prometheus.CounterVec
	generationDuration   *prometheus.HistogramVec

	// Artifact metrics
	artifactsSaved *prometheus.CounterVec

	// Graph metrics
	graphStages prometheus.Gauge
	graphLinks  prometheus.Gauge

	// Error metrics
	errorsByKind *prometheus.CounterVec

	// System metrics
	inflightAttempts prometheus.Gauge

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

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Analysis metrics
		analysesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_started_total",
				Help:      "Total number of repository analyses started",
			},
			[]string{"source"},
		),
		analysesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_completed_total",
				Help:      "Total number of repository analyses settled",
			},
			[]string{"source", "status"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of repository analysis calls in seconds",
				Buckets:   buckets,
			},
			[]string{"source", "status"},
		),

		// Generation metrics
		generationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_started_total",
				Help:      "Total number of configuration generations started",
			},
			[]string{"provider"},
		),
		generationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_completed_total",
				Help:      "Total number of configuration generations settled",
			},
			[]string{"provider", "status"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of configuration generation calls in seconds",
				Buckets:   buckets,
			},
			[]string{"provider", "status"},
		),

		// Artifact metrics
		artifactsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_saved_total",
				Help:      "Total number of generated configurations persisted",
			},
			[]string{"provider"},
		),

		// Graph metrics
		graphStages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_stages",
				Help:      "Current number of stages in the pipeline graph",
			},
		),
		graphLinks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_links",
				Help:      "Current number of ordering links in the pipeline graph",
			},
		),

		// Error metrics
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_kind_total",
				Help:      "Total number of classified errors by kind",
			},
			[]string{"kind", "operation"},
		),

		// System metrics
		inflightAttempts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inflight_attempts",
				Help:      "Current number of in-flight remote attempts",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.analysesStarted,
		m.analysesCompleted,
		m.analysisDuration,
		m.generationsStarted,
		m.generationsCompleted,
		m.generationDuration,
		m.artifactsSaved,
		m.graphStages,
		m.graphLinks,
		m.errorsByKind,
		m.inflightAttempts,
	)

	return m, nil
}

// Analysis Metrics

// RecordAnalysisStarted increments the counter for started analyses.
func (m *Metrics) RecordAnalysisStarted(source string) {
	if m.analysesStarted == nil {
		return
	}
	m.analysesStarted.WithLabelValues(source).Inc()
	m.inflightAttempts.Inc()
}

// RecordAnalysisCompleted records a settled analysis with its status and duration.
func (m *Metrics) RecordAnalysisCompleted(source, status string, duration time.Duration) {
	if m.analysesCompleted == nil {
		return
	}
	m.analysesCompleted.WithLabelValues(source, status).Inc()
	m.analysisDuration.WithLabelValues(source, status).Observe(duration.Seconds())
	m.inflightAttempts.Dec()
}

// Generation Metrics

// RecordGenerationStarted increments the counter for started generations.
func (m *Metrics) RecordGenerationStarted(provider string) {
	if m.generationsStarted == nil {
		return
	}
	m.generationsStarted.WithLabelValues(provider).Inc()
	m.inflightAttempts.Inc()
}

// RecordGenerationCompleted records a settled generation with its status and duration.
func (m *Metrics) RecordGenerationCompleted(provider, status string, duration time.Duration) {
	if m.generationsCompleted == nil {
		return
	}
	m.generationsCompleted.WithLabelValues(provider, status).Inc()
	m.generationDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	m.inflightAttempts.Dec()
}

// Artifact Metrics

// RecordArtifactSaved records a persisted configuration artifact.
func (m *Metrics) RecordArtifactSaved(provider string) {
	if m.artifactsSaved == nil {
		return
	}
	m.artifactsSaved.WithLabelValues(provider).Inc()
}

// Graph Metrics

// SetGraphSize records the current pipeline graph size.
func (m *Metrics) SetGraphSize(stages, links int) {
	if m.graphStages == nil {
		return
	}
	m.graphStages.Set(float64(stages))
	m.graphLinks.Set(float64(links))
}

// Error Metrics

// RecordError records a classified error by kind and operation.
func (m *Metrics) RecordError(kind, operation string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind, operation).Inc()
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

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
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
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
