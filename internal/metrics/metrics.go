// Package metrics provides Prometheus metrics collection for the water
// quality service. All metrics are exposed via the Prometheus endpoint on
// the metrics port for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Account metrics
	RegistrationsTotal prometheus.Counter // Total successful registrations
	AuthFailuresTotal  prometheus.Counter // Total failed login attempts

	// Prediction metrics
	PredictionsTotal        prometheus.Counter   // Total predictions served
	PredictionFailuresTotal prometheus.Counter   // Total failed prediction requests
	FallbackUseTotal        prometheus.Counter   // Predictions served by the heuristic fallback
	InferenceLatency        prometheus.Histogram // Classifier inference latency in seconds
	ConfidenceScores        prometheus.Histogram // Distribution of reported confidence percentages
	ModelAge                prometheus.Gauge     // Age of the loaded artifact in seconds

	// Storage and system metrics
	StorageErrorsTotal prometheus.Counter // Total storage I/O failures
	WSClients          prometheus.Gauge   // Connected live-stats WebSocket clients
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for tests,
// which need isolated collection).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total number of successful user registrations",
		}),
		AuthFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of failed login attempts",
		}),
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of potability predictions served",
		}),
		PredictionFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction requests",
		}),
		FallbackUseTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_fallback_use_total",
			Help: "Total number of predictions served by the heuristic fallback",
		}),
		InferenceLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Classifier inference latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Distribution of reported confidence percentages",
			Buckets: prometheus.LinearBuckets(50, 5, 11),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded classifier artifact in seconds",
		}),
		StorageErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "storage_errors_total",
			Help: "Total number of storage I/O failures",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_stats_clients",
			Help: "Number of connected live-stats WebSocket clients",
		}),
	}
}

// PredictionsInc implements the predictor's metrics interface.
func (m *Metrics) PredictionsInc() { m.PredictionsTotal.Inc() }

// PredictionFailuresInc implements the predictor's metrics interface.
func (m *Metrics) PredictionFailuresInc() { m.PredictionFailuresTotal.Inc() }

// FallbackUseInc implements the predictor's metrics interface.
func (m *Metrics) FallbackUseInc() { m.FallbackUseTotal.Inc() }

// InferenceLatencyObserve implements the predictor's metrics interface.
func (m *Metrics) InferenceLatencyObserve(seconds float64) { m.InferenceLatency.Observe(seconds) }

// ConfidenceObserve implements the predictor's metrics interface.
func (m *Metrics) ConfidenceObserve(pct float64) { m.ConfidenceScores.Observe(pct) }

// ModelAgeSet implements the predictor's metrics interface.
func (m *Metrics) ModelAgeSet(seconds float64) { m.ModelAge.Set(seconds) }

// StorageErrorInc implements the pipeline's metrics interface.
func (m *Metrics) StorageErrorInc() { m.StorageErrorsTotal.Inc() }

// RegistrationsInc records one successful registration.
func (m *Metrics) RegistrationsInc() { m.RegistrationsTotal.Inc() }

// AuthFailuresInc records one failed login attempt.
func (m *Metrics) AuthFailuresInc() { m.AuthFailuresTotal.Inc() }
