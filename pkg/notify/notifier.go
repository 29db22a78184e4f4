package notify

import (
	"context"
	"log/slog"
	"sort"

	"github.com/auditree/auditree-go/pkg/runner"
)

// TestOutcome is one test method's result, flattened for notifier
// consumption.
type TestOutcome struct {
	Check  string
	Method string
	Status runner.Status
	Detail []string
}

// Bucket groups every test outcome that satisfies one accreditation,
// itself grouped by status.
type Bucket struct {
	Accreditation string
	Pass          []TestOutcome
	Warn          []TestOutcome
	Fail          []TestOutcome
	Error         []TestOutcome
}

// Total returns the bucket's case count across all statuses.
func (b Bucket) Total() int {
	return len(b.Pass) + len(b.Warn) + len(b.Fail) + len(b.Error)
}

// BucketByAccreditation groups results by accreditation (sorted
// alphabetically) and, within each, by status. A check result with no
// accreditations is bucketed under the empty-string accreditation so
// it is never silently dropped.
func BucketByAccreditation(results map[string]*runner.CheckResult) []Bucket {
	byAccr := map[string]*Bucket{}
	get := func(accr string) *Bucket {
		b, ok := byAccr[accr]
		if !ok {
			b = &Bucket{Accreditation: accr}
			byAccr[accr] = b
		}
		return b
	}

	for class, cr := range results {
		accrs := cr.Accreditations
		if len(accrs) == 0 {
			accrs = []string{""}
		}
		for method, tr := range cr.Tests {
			outcome := TestOutcome{Check: class, Method: method, Status: tr.Status}
			switch tr.Status {
			case runner.StatusFail:
				outcome.Detail = tr.Failures
			case runner.StatusWarn:
				outcome.Detail = tr.Warnings
			case runner.StatusError:
				if tr.Err != nil {
					outcome.Detail = []string{tr.Err.Error()}
				}
			default:
				outcome.Detail = tr.Successes
			}

			for _, a := range accrs {
				b := get(a)
				switch tr.Status {
				case runner.StatusPass:
					b.Pass = append(b.Pass, outcome)
				case runner.StatusWarn:
					b.Warn = append(b.Warn, outcome)
				case runner.StatusFail:
					b.Fail = append(b.Fail, outcome)
				case runner.StatusError:
					b.Error = append(b.Error, outcome)
				}
			}
		}
	}

	names := make([]string, 0, len(byAccr))
	for a := range byAccr {
		names = append(names, a)
	}
	sort.Strings(names)

	out := make([]Bucket, 0, len(names))
	for _, a := range names {
		out = append(out, *byAccr[a])
	}
	return out
}

// Notifier is one outcome sink. Implementations must be safe to call
// with an absent configuration section: they should log a warning and
// return nil rather than error.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, buckets []Bucket, pushErr error) error
}

// Dispatch runs every notifier in order, logging its start and
// collecting (rather than short-circuiting on) failures, since one
// sink's outage should not silence the others.
func Dispatch(ctx context.Context, notifiers []Notifier, results map[string]*runner.CheckResult, pushErr error, logger *slog.Logger) []error {
	buckets := BucketByAccreditation(results)

	var errs []error
	for _, n := range notifiers {
		if logger != nil {
			logger.Info("running notifier", "notifier", n.Name())
		}
		if err := n.Notify(ctx, buckets, pushErr); err != nil {
			if logger != nil {
				logger.Warn("notifier failed", "notifier", n.Name(), "error", err)
			}
			errs = append(errs, err)
		}
	}
	return errs
}

// RequirePush reports whether a notifier configured to require a
// successful push should no-op given pushErr. No notifier in this
// repository calls it: chat, paging and findings run whether or not
// pushErr is set, and none of their Config types has a require-push
// option.
func RequirePush(requirePush bool, pushErr error) bool {
	return requirePush && pushErr != nil
}
