// Package notify emits per-accreditation check outcomes to configured
// sinks once a check phase completes.
//
// Every notifier consumes the same input: BucketByAccreditation's view
// of the run's results, plus a pushErr flag recording whether the
// check phase's locker push failed. Each notifier logs one "running…"
// line and, if its configuration section is absent, one warning, then
// either emits its sink-specific message or becomes a no-op.
//
// Concrete sinks live here (stream, locker) and in subpackages that
// need their own HTTP client idiom: chat (Slack-shape), ticket
// (GitHub-issues-shape), paging (PagerDuty-shape), findings.
package notify
