package runner

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and histograms a Runner registers with
// the caller's Prometheus registry.
type Metrics struct {
	FetchDuration   *prometheus.HistogramVec
	CheckDuration   *prometheus.HistogramVec
	RerunIterations prometheus.Histogram
	CasesTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers a Metrics set against reg. Passing
// nil registers against prometheus.DefaultRegisterer; tests should
// pass a fresh prometheus.NewRegistry() instead to avoid colliding
// with other Runner instances' registrations in the same process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auditree",
			Subsystem: "runner",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of each fetcher case.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"fetcher", "status"}),
		CheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auditree",
			Subsystem: "runner",
			Name:      "check_duration_seconds",
			Help:      "Duration of each check test-method case.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"check", "status"}),
		RerunIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auditree",
			Subsystem: "runner",
			Name:      "dependency_rerun_iterations",
			Help:      "Iterations the fetch phase's dependency-rerun loop took per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		}),
		CasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auditree",
			Subsystem: "runner",
			Name:      "cases_total",
			Help:      "Total fetcher/check cases by phase and status.",
		}, []string{"phase", "status"}),
	}
	reg.MustRegister(m.FetchDuration, m.CheckDuration, m.RerunIterations, m.CasesTotal)
	return m
}
