package autodiff

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/adgraph/internal/autodiff/ops"
)

// Metrics holds the Prometheus collectors updated by sessions.
// A nil *Metrics is valid and records nothing.
//
// One Metrics value may be shared by many sessions.
type Metrics struct {
	nodesCreated     *prometheus.CounterVec
	backwardPasses   prometheus.Counter
	backwardNodes    prometheus.Histogram
	backwardDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		nodesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adgraph_nodes_created_total",
			Help: "Graph nodes created, by operation kind (leaf for leaves)",
		}, []string{"kind"}),
		backwardPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "adgraph_backward_passes_total",
			Help: "Completed backward passes",
		}),
		backwardNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adgraph_backward_nodes",
			Help:    "Nodes reachable from the terminal per backward pass",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		backwardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adgraph_backward_duration_seconds",
			Help:    "Backward pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
	}
}

func (m *Metrics) nodeCreated(k ops.Kind) {
	if m == nil {
		return
	}
	label := k.String()
	if k == ops.None {
		label = "leaf"
	}
	m.nodesCreated.WithLabelValues(label).Inc()
}

func (m *Metrics) backwardDone(nodes int, d time.Duration) {
	if m == nil {
		return
	}
	m.backwardPasses.Inc()
	m.backwardNodes.Observe(float64(nodes))
	m.backwardDuration.Observe(d.Seconds())
}
