package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records phase operation outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	agentDuration *prometheus.HistogramVec
	confidence    prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "embody_phase_operations_total",
			Help: "Session operations by outcome.",
		}, []string{"operation", "outcome"}),
		agentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "embody_agent_call_duration_seconds",
			Help:    "Wall time of agent calls.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"operation"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "embody_refine_confidence",
			Help:    "Confidence reported by refinement rounds.",
			Buckets: []float64{0.25, 0.5, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		}),
	}
	m.registry.MustRegister(m.operations, m.agentDuration, m.confidence)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) observeAgent(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.agentDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) observeConfidence(c float64) {
	if m == nil {
		return
	}
	m.confidence.Observe(c)
}
