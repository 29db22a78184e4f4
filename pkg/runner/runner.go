package runner

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/controls"
	"github.com/auditree/auditree-go/pkg/credentials"
	"github.com/auditree/auditree-go/pkg/locker"
)

// Options configures one Runner invocation.
type Options struct {
	Fetch bool
	Check bool

	FetchOptions FetchOptions
	CheckOptions CheckOptions

	// FixFn, when non-nil, runs fixers after a successful check-phase
	// push. Injected rather than imported: pkg/fixer depends on
	// pkg/runner's Check/CheckResult types, so pkg/runner cannot import
	// pkg/fixer back without a cycle.
	FixFn func(ctx context.Context, rc *RunContext, results map[string]*CheckResult) (fixedCount int, err error)

	// ReportFn builds report evidence and the consolidated results file
	// before the check phase's commit; NotifyFn dispatches notifiers
	// after it. Both are injected for the same reason as FixFn.
	ReportFn func(ctx context.Context, results map[string]*CheckResult) error
	NotifyFn func(ctx context.Context, results map[string]*CheckResult, pushErr error) error
}

// Runner executes the fetch and/or check phase against a locker.
type Runner struct {
	locker      *locker.Locker
	config      *config.Config
	credentials *credentials.Bag
	controls    *controls.Manifest
	logger      *slog.Logger
	metrics     *Metrics
}

// New constructs a Runner. reg may be nil to register metrics against
// prometheus.DefaultRegisterer; tests should pass prometheus.NewRegistry()
// to avoid colliding with other Runner instances in the same process.
func New(l *locker.Locker, cfg *config.Config, creds *credentials.Bag, manifest *controls.Manifest, logger *slog.Logger, reg prometheus.Registerer) *Runner {
	return &Runner{
		locker:      l,
		config:      cfg,
		credentials: creds,
		controls:    manifest,
		logger:      logger,
		metrics:     NewMetrics(reg),
	}
}

// Run executes the requested phases in order: fetch, then check. Per
// the chain-of-custody invariant, whatever was staged is committed and
// pushed (if configured) even when a phase reports case failures. A
// check-phase push error skips only the fixers; notifiers still run and
// receive it.
func (r *Runner) Run(ctx context.Context, opts Options) (*RunResult, error) {
	rc := newRunContext(r.locker, r.config, r.credentials)
	result := &RunResult{CheckResults: map[string]*CheckResult{}}

	if opts.Fetch {
		fetchResults, depErr := r.runFetchPhase(ctx, rc, opts.FetchOptions)
		result.FetchResults = fetchResults
		if depErr != nil {
			result.Diagnostics = append(result.Diagnostics, depErr.Error())
		}

		if !opts.Check {
			result.PushError = r.checkin(ctx)
		}
	}

	if opts.Check {
		checkResults, diags := r.runCheckPhase(ctx, rc, opts.CheckOptions)
		result.CheckResults = checkResults
		result.Diagnostics = append(result.Diagnostics, diags...)

		if opts.ReportFn != nil {
			if err := opts.ReportFn(ctx, checkResults); err != nil {
				result.Diagnostics = append(result.Diagnostics, "report builder: "+err.Error())
			}
		}

		result.PushError = r.checkin(ctx)

		if result.PushError == nil && opts.FixFn != nil {
			fixed, err := opts.FixFn(ctx, rc, checkResults)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics, "fixer: "+err.Error())
			}
			_ = fixed
		}

		if opts.NotifyFn != nil {
			if err := opts.NotifyFn(ctx, checkResults, result.PushError); err != nil {
				result.Diagnostics = append(result.Diagnostics, "notify: "+err.Error())
			}
		}
	}

	return result, nil
}

// checkin commits whatever the phase staged and surfaces either a
// commit-time error or a push rejection recorded on the locker.
func (r *Runner) checkin(ctx context.Context) error {
	if r.locker == nil {
		return nil
	}
	if err := r.locker.Checkin(ctx); err != nil {
		return err
	}
	return r.locker.PushError()
}
