package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/auditree/auditree-go/pkg/locker"
)

// Collector exports a Locker's lifecycle timings and push counters as
// Prometheus metrics. It is the single place the pipeline registers
// locker-side metrics, separate from pkg/runner's own fetch/check-case
// metrics.
type Collector struct {
	registry prometheus.Registerer

	initDuration    prometheus.Histogram
	checkinDuration prometheus.Histogram
	pushTotal       *prometheus.CounterVec

	lastSuccesses int64
	lastFailures  int64
}

// NewCollector creates a Collector and registers its metrics against
// reg. Passing nil registers against prometheus.DefaultRegisterer;
// tests should pass a fresh prometheus.NewRegistry() to avoid
// colliding with other Collectors in the same process.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		registry: reg,
		initDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auditree",
			Subsystem: "locker",
			Name:      "init_duration_seconds",
			Help:      "Duration of Locker.Init (clone or open plus fetch).",
			Buckets:   prometheus.DefBuckets,
		}),
		checkinDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auditree",
			Subsystem: "locker",
			Name:      "checkin_duration_seconds",
			Help:      "Duration of Locker.Checkin (commit plus push).",
			Buckets:   prometheus.DefBuckets,
		}),
		pushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auditree",
			Subsystem: "locker",
			Name:      "push_total",
			Help:      "Total locker pushes by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.initDuration, c.checkinDuration, c.pushTotal)
	return c
}

// Observe records a snapshot of a Locker's lifecycle metrics. Callers
// invoke this once after Init and once after each Checkin, passing
// l.Metrics(). Metrics() returns cumulative counters, so Observe adds
// only the delta since its last call to keep the exported counter
// monotonic without double-counting.
func (c *Collector) Observe(snap locker.Metrics) {
	if snap.InitDuration > 0 {
		c.initDuration.Observe(snap.InitDuration.Seconds())
	}
	if snap.CheckinDuration > 0 {
		c.checkinDuration.Observe(snap.CheckinDuration.Seconds())
	}

	if d := snap.PushSuccesses - c.lastSuccesses; d > 0 {
		c.pushTotal.WithLabelValues("success").Add(float64(d))
	}
	if d := snap.PushFailures - c.lastFailures; d > 0 {
		c.pushTotal.WithLabelValues("failure").Add(float64(d))
	}
	c.lastSuccesses = snap.PushSuccesses
	c.lastFailures = snap.PushFailures
}
