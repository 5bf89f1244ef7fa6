package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Metrics Types:

- CounterVec: votes accepted and rejected, split by direction.
- Counter: resets.
- HistogramVec: latency of each store operation, so a slow disk or
  a remote database shows up before requests start timing out.

All metrics are registered on the Registerer passed to New. Tests
pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
*/

type VoteMetrics struct {
	Votes    *prometheus.CounterVec
	Rejected *prometheus.CounterVec
	Resets   prometheus.Counter
	Toggles  *prometheus.CounterVec
	StoreOps *prometheus.HistogramVec
}

func New(reg prometheus.Registerer, namespace string) *VoteMetrics {
	m := &VoteMetrics{
		Votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "Total number of accepted votes",
			},
			[]string{"direction"},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_rejected_total",
				Help:      "Votes refused because voting was disabled",
			},
			[]string{"direction"},
		),
		Resets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resets_total",
				Help:      "Number of counter resets",
			},
		),
		Toggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "toggles_total",
				Help:      "Number of voting flag changes by target state",
			},
			[]string{"active"},
		),
		StoreOps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_op_seconds",
				Help:      "Latency of vote store operations",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.Votes, m.Rejected, m.Resets, m.Toggles, m.StoreOps)
	return m
}

// The helpers below accept a nil receiver so callers can run without metrics.

func (m *VoteMetrics) VoteAccepted(direction string) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(direction).Inc()
}

func (m *VoteMetrics) VoteRejected(direction string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(direction).Inc()
}

func (m *VoteMetrics) Reset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

func (m *VoteMetrics) Toggle(active bool) {
	if m == nil {
		return
	}
	label := "false"
	if active {
		label = "true"
	}
	m.Toggles.WithLabelValues(label).Inc()
}

func (m *VoteMetrics) ObserveStoreOp(op string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreOps.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
