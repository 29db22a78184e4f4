package fixer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/auditree/auditree-go/pkg/credentials"
	"github.com/auditree/auditree-go/pkg/runner"
)

// Mode selects how Run treats a matched fix.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeOn     Mode = "on"
	ModeDryRun Mode = "dry-run"
)

// ParseMode validates a --fix flag value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOff, ModeOn, ModeDryRun, "":
		if s == "" {
			return ModeOff, nil
		}
		return Mode(s), nil
	default:
		return "", fmt.Errorf("fixer: unknown mode %q (want off, on, or dry-run)", s)
	}
}

// Result is the outcome of attempting one check's failing test method.
type Result struct {
	Class   string
	Method  string
	Fixed   bool
	Message string
	Err     error
}

// Run attempts a fix for every fail-status test method in results whose
// owning check implements runner.FixerCheck. It mutates each
// CheckResult's FixedFailureCount in place as live fixes succeed, per
// spec: fixed_failure_count is a property of the check result, not a
// side channel.
func Run(
	ctx context.Context,
	mode Mode,
	out io.Writer,
	rc *runner.RunContext,
	creds *credentials.Bag,
	results map[string]*runner.CheckResult,
	logger *slog.Logger,
) []Result {
	if mode == ModeOff || mode == "" {
		return nil
	}

	byName := map[string]runner.Check{}
	for _, c := range runner.Checks() {
		byName[c.Name()] = c
	}

	var outcomes []Result
	for class, cr := range results {
		check, ok := byName[class]
		if !ok {
			continue
		}
		fc, ok := check.(runner.FixerCheck)
		if !ok {
			continue
		}

		for method, tr := range cr.Tests {
			if tr.Status != runner.StatusFail {
				continue
			}

			fixed, message, err := fc.Fix(ctx, rc, method, creds, mode == ModeDryRun)
			res := Result{Class: class, Method: method, Fixed: fixed, Message: message, Err: err}
			outcomes = append(outcomes, res)

			if err != nil {
				if logger != nil {
					logger.Warn("fix failed", "check", class, "test", method, "error", err)
				}
				continue
			}

			if mode == ModeDryRun {
				fmt.Fprintf(out, "[dry-run] %s.%s: %s\n", class, method, message)
				continue
			}

			if fixed {
				cr.FixedFailureCount++
			}
		}
	}
	return outcomes
}
