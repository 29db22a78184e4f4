// Package telemetry groups the observability surface of the evidence
// pipeline: structured logging (pkg/obslog) and Prometheus metrics for
// locker activity (pkg/telemetry/metrics). The runner's fetch/check-case
// metrics live in pkg/runner.
//
// # Usage
//
//	logger, err := obslog.New(obslog.Config{Level: "info"})
//	collector := metrics.NewCollector(nil)
//	collector.Observe(lk.Metrics())
package telemetry
