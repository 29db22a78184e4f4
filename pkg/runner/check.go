package runner

import (
	"context"
	"time"
)

// CheckOptions scopes the check phase to the requested accreditations.
// An empty slice matches every check test the controls manifest lists
// with at least one accreditation; with no manifest, every registered
// check runs.
type CheckOptions struct {
	Accreditations []string
}

// runCheckPhase runs every registered check whose test methods
// intersect the requested accreditations, per pkg/controls. Unloadable
// modules referenced by the controls manifest (a check id with no
// registered Check behind it) are reported as diagnostics rather than
// failing the run outright.
func (r *Runner) runCheckPhase(ctx context.Context, rc *RunContext, opts CheckOptions) (map[string]*CheckResult, []string) {
	var diagnostics []string
	out := map[string]*CheckResult{}

	registered := map[string]bool{}
	for _, c := range Checks() {
		registered[c.Name()] = true

		accrsByTest := map[string][]string{}
		for _, method := range c.Tests() {
			checkID := c.Name() + "." + method
			if r.controls != nil && !r.controls.IsTestIncluded(checkID, opts.Accreditations) {
				continue
			}
			var accrs []string
			if r.controls != nil {
				accrs = r.controls.GetAccreditations(checkID)
			}
			accrsByTest[method] = accrs
		}
		if len(accrsByTest) == 0 {
			continue
		}

		cr := &CheckResult{Class: c.Name(), Tests: map[string]CaseResult{}}
		accrSet := map[string]bool{}
		for _, accrs := range accrsByTest {
			for _, a := range accrs {
				accrSet[a] = true
			}
		}
		for a := range accrSet {
			cr.Accreditations = append(cr.Accreditations, a)
		}

		for _, method := range c.Tests() {
			if _, ok := accrsByTest[method]; !ok {
				continue
			}
			id := CaseID{Module: checkModule(c), Class: c.Name(), Method: method}
			cr.Tests[method] = r.runCheckCase(ctx, rc, id, c, method)
		}
		out[c.Name()] = cr
	}

	if r.controls != nil {
		for _, checkID := range r.controls.CheckIDs() {
			class, _, ok := splitCheckID(checkID)
			if ok && !registered[class] {
				diagnostics = append(diagnostics, "controls manifest references unregistered check: "+checkID)
			}
		}
	}

	return out, diagnostics
}

// splitCheckID separates "<class>.<method>" on the last dot.
func splitCheckID(checkID string) (class, method string, ok bool) {
	for i := len(checkID) - 1; i >= 0; i-- {
		if checkID[i] == '.' {
			return checkID[:i], checkID[i+1:], true
		}
	}
	return "", "", false
}

func (r *Runner) runCheckCase(ctx context.Context, rc *RunContext, id CaseID, c Check, method string) CaseResult {
	rc.setCurrentCase(id)
	start := time.Now()
	err := c.RunTest(ctx, rc, method)
	end := time.Now()
	failures, warnings, successes := rc.counts()

	res := CaseResult{ID: id, Start: start, End: end, Failures: failures, Warnings: warnings, Successes: successes, Err: err}
	switch {
	case err != nil:
		res.Status = StatusError
	case len(failures) > 0:
		// A case that returned nil but still recorded a failure is a
		// silent-failure bug: failures_count must be zero for a pass.
		res.Status = StatusFail
	case len(warnings) > 0:
		res.Status = StatusWarn
	default:
		res.Status = StatusPass
	}

	if r.metrics != nil {
		r.metrics.CheckDuration.WithLabelValues(c.Name(), string(res.Status)).Observe(res.Duration().Seconds())
		r.metrics.CasesTotal.WithLabelValues("check", string(res.Status)).Inc()
	}
	if r.logger != nil {
		r.logger.Debug("check case complete", "check", c.Name(), "test", method, "status", string(res.Status))
	}
	return res
}
