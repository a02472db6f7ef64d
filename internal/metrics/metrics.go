// Package metrics exposes Prometheus counters for the enrichment pass.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)

// Label kinds
const (
	LabelNone      = "none"
	LabelFlagged   = "flagged"
	LabelOverruled = "overruled"
	LabelSkipped   = "skipped"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	classifyCalls    *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec
	fallbacks        prometheus.Counter
	labels           *prometheus.CounterVec
	uncertain        *prometheus.CounterVec
	checkpoints      prometheus.Counter
}

// New creates collectors registered on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		classifyCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honorscan_classify_calls_total",
			Help: "Classifier attempts by model and outcome",
		}, []string{"model", "outcome"}),
		classifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "honorscan_classify_duration_seconds",
			Help:    "Latency of classifier attempts",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"model"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honorscan_classify_fallbacks_total",
			Help: "Classifications retried on the fallback model",
		}),
		labels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honorscan_labels_total",
			Help: "Rows labeled by the enrichment pass, by kind",
		}, []string{"kind"}),
		uncertain: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honorscan_uncertain_cases_total",
			Help: "Rows logged for manual review, by reason",
		}, []string{"reason"}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honorscan_checkpoints_total",
			Help: "Checkpoint flushes of the honoree table",
		}),
	}

	m.registry.MustRegister(
		m.classifyCalls,
		m.classifyDuration,
		m.fallbacks,
		m.labels,
		m.uncertain,
		m.checkpoints,
	)
	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCall records one classifier attempt
func (m *Metrics) ObserveCall(model, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.classifyCalls.WithLabelValues(model, outcome).Inc()
	m.classifyDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// IncFallback counts a switch to the fallback model
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// IncLabel counts a row reaching a terminal label
func (m *Metrics) IncLabel(kind string) {
	if m == nil {
		return
	}
	m.labels.WithLabelValues(kind).Inc()
}

// IncUncertain counts an uncertain case
func (m *Metrics) IncUncertain(reason string) {
	if m == nil {
		return
	}
	m.uncertain.WithLabelValues(reason).Inc()
}

// IncCheckpoint counts a table flush
func (m *Metrics) IncCheckpoint() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}

// WriteToTextfile writes all metrics in the text exposition format for the
// node exporter textfile collector. An empty path is a no-op.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
