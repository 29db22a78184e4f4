package runner

import (
	"context"
	"errors"
	"time"

	"github.com/auditree/auditree-go/pkg/evidence"
)

// maxRerunIterations bounds the dependency-rerun loop: past this many
// passes an unresolved dependency is treated as unresolvable rather
// than retried forever.
const maxRerunIterations = 100

// FetchOptions scopes the fetch phase to a subset of registered
// fetchers. Include, if non-empty, is an allow-list; Exclude always
// removes matching names after Include is applied.
type FetchOptions struct {
	Include []string
	Exclude []string
}

func filterFetchers(all []Fetcher, opts FetchOptions) []Fetcher {
	include := toSet(opts.Include)
	exclude := toSet(opts.Exclude)
	out := make([]Fetcher, 0, len(all))
	for _, f := range all {
		if len(include) > 0 && !include[f.Name()] {
			continue
		}
		if exclude[f.Name()] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func toSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[v] = true
	}
	return m
}

// runFetchPhase executes every selected fetcher once, then replays any
// case that raised evidence.DependencyUnavailableError until the rerun
// queue empties, reaches a fixed point (same set as the previous
// pass — meaning the dependency is truly unresolvable), or the
// iteration bound is reached.
func (r *Runner) runFetchPhase(ctx context.Context, rc *RunContext, opts FetchOptions) ([]CaseResult, error) {
	selected := filterFetchers(Fetchers(), opts)

	order := make([]CaseID, 0, len(selected))
	results := map[CaseID]CaseResult{}
	for _, f := range selected {
		id := CaseID{Module: fetcherModule(f), Class: f.Name(), Method: "fetch"}
		order = append(order, id)
		results[id] = r.runFetchCase(ctx, rc, id, f)
	}

	pending := rc.drainReruns()
	iterations := 0
	for len(pending) > 0 && iterations < maxRerunIterations {
		iterations++
		for id := range pending {
			f, ok := fetcherByName(selected, id.Class)
			if !ok {
				continue
			}
			results[id] = r.runFetchCase(ctx, rc, id, f)
		}
		next := rc.drainReruns()
		if sameCaseSet(next, pending) {
			pending = next
			break
		}
		pending = next
	}
	if r.metrics != nil {
		r.metrics.RerunIterations.Observe(float64(iterations))
	}

	out := make([]CaseResult, len(order))
	for i, id := range order {
		res := results[id]
		if pending[id] {
			res.Status = StatusFail
		}
		out[i] = res
	}

	var err error
	if len(pending) > 0 {
		unresolved := make([]CaseID, 0, len(pending))
		for id := range pending {
			unresolved = append(unresolved, id)
		}
		err = NewUnresolvedDependencyError(unresolved)
	}
	return out, err
}

func fetcherByName(fs []Fetcher, name string) (Fetcher, bool) {
	for _, f := range fs {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

func sameCaseSet(a, b map[CaseID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

func isDependencyUnavailable(err error) bool {
	var dep *evidence.DependencyUnavailableError
	return errors.As(err, &dep)
}

func (r *Runner) runFetchCase(ctx context.Context, rc *RunContext, id CaseID, f Fetcher) CaseResult {
	rc.setCurrentCase(id)
	start := time.Now()
	err := f.Fetch(ctx, rc)
	end := time.Now()
	failures, warnings, successes := rc.counts()

	res := CaseResult{ID: id, Start: start, End: end, Failures: failures, Warnings: warnings, Successes: successes, Err: err}
	switch {
	case err != nil && isDependencyUnavailable(err):
		// Provisional: corrected to pass if a later rerun resolves it,
		// or left as fail by the caller if the rerun loop gives up.
		res.Status = StatusFail
	case err != nil:
		res.Status = StatusError
	case len(failures) > 0:
		res.Status = StatusFail
	case len(warnings) > 0:
		res.Status = StatusWarn
	default:
		res.Status = StatusPass
	}

	if r.metrics != nil {
		r.metrics.FetchDuration.WithLabelValues(f.Name(), string(res.Status)).Observe(res.Duration().Seconds())
		r.metrics.CasesTotal.WithLabelValues("fetch", string(res.Status)).Inc()
	}
	if r.logger != nil {
		r.logger.Debug("fetch case complete", "fetcher", f.Name(), "status", string(res.Status), "duration", res.Duration())
	}
	return res
}
