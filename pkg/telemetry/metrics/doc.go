// Package metrics exports a Locker's lifecycle as Prometheus metrics:
// init (clone/open) duration, checkin (commit+push) duration, and a
// push outcome counter. Fetch/check-case metrics live alongside the
// runner that produces them, in pkg/runner; this package only covers
// the locker's own git-lifecycle timings, which the locker tracks
// internally (locker.Metrics) but does not itself export.
//
// Usage:
//
//	collector := metrics.NewCollector(nil) // registers against the default registry
//	lk, _ := locker.New(opts)
//	lk.Init(ctx)
//	collector.Observe(lk.Metrics())
//	lk.Checkin(ctx)
//	collector.Observe(lk.Metrics())
package metrics
