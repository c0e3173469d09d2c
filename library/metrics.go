package library

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what a session does. Each session registers on its own
// registry so independent sessions (and tests) never collide.
type Metrics struct {
	Registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	undos           *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	pointsAwarded   prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "mutations_total",
			Help:      "Committed mutations by operation.",
		}, []string{"op"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "rejections_total",
			Help:      "Operations rejected before mutating, by operation.",
		}, []string{"op"}),
		undos: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "undos_total",
			Help:      "Applied undo entries by kind.",
		}, []string{"kind"}),
		persistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "persist_failures_total",
			Help:      "Saves that failed after an in-memory commit, by collection.",
		}, []string{"target"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "library",
			Name:      "request_queue_depth",
			Help:      "Customer requests waiting to be served.",
		}),
		pointsAwarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "points_awarded_total",
			Help:      "Reward points granted for borrowing.",
		}),
	}
}

func (m *Metrics) mutation(op string)      { m.mutations.WithLabelValues(op).Inc() }
func (m *Metrics) rejection(op string)     { m.rejections.WithLabelValues(op).Inc() }
func (m *Metrics) undo(kind string)        { m.undos.WithLabelValues(kind).Inc() }
func (m *Metrics) persistFailure(t string) { m.persistFailures.WithLabelValues(t).Inc() }
func (m *Metrics) setQueueDepth(n int)     { m.queueDepth.Set(float64(n)) }
func (m *Metrics) awarded(points int)      { m.pointsAwarded.Add(float64(points)) }
