package fixer

import (
	"bytes"
	"context"
	"testing"

	"github.com/auditree/auditree-go/pkg/credentials"
	"github.com/auditree/auditree-go/pkg/runner"
)

type fixableCheck struct {
	name     string
	fixCalls []string
	dryRun   bool
}

func (c *fixableCheck) Name() string    { return c.name }
func (c *fixableCheck) Tests() []string { return []string{"test_roster"} }
func (c *fixableCheck) RunTest(ctx context.Context, rc *runner.RunContext, method string) error {
	return nil
}

func (c *fixableCheck) Fix(ctx context.Context, rc *runner.RunContext, method string, creds *credentials.Bag, dryRun bool) (bool, string, error) {
	c.fixCalls = append(c.fixCalls, method)
	c.dryRun = dryRun
	if dryRun {
		return false, "would add missing roster entry for " + method, nil
	}
	return true, "added missing roster entry", nil
}

func TestRunDryRunWritesPreviewAndLeavesCountUnchanged(t *testing.T) {
	c := &fixableCheck{name: "fixer_test.DryRunCheck"}
	runner.RegisterCheck(c)

	results := map[string]*runner.CheckResult{
		c.name: {
			Class: c.name,
			Tests: map[string]runner.CaseResult{
				"test_roster": {Status: runner.StatusFail},
			},
		},
	}

	var buf bytes.Buffer
	outcomes := Run(context.Background(), ModeDryRun, &buf, nil, nil, results, nil)

	if len(outcomes) != 1 {
		t.Fatalf("outcomes = %v, want 1 entry", outcomes)
	}
	if outcomes[0].Fixed {
		t.Error("dry-run Fix must report Fixed=false")
	}
	if results[c.name].FixedFailureCount != 0 {
		t.Error("dry-run must not increment FixedFailureCount")
	}
	if buf.Len() == 0 {
		t.Error("expected a dry-run preview line written to out")
	}
}

func TestRunLiveModeIncrementsFixedFailureCount(t *testing.T) {
	c := &fixableCheck{name: "fixer_test.LiveCheck"}
	runner.RegisterCheck(c)

	results := map[string]*runner.CheckResult{
		c.name: {
			Class: c.name,
			Tests: map[string]runner.CaseResult{
				"test_roster": {Status: runner.StatusFail},
			},
		},
	}

	Run(context.Background(), ModeOn, &bytes.Buffer{}, nil, nil, results, nil)

	if results[c.name].FixedFailureCount != 1 {
		t.Errorf("FixedFailureCount = %d, want 1", results[c.name].FixedFailureCount)
	}
	if len(c.fixCalls) != 1 {
		t.Errorf("fix called %d times, want 1", len(c.fixCalls))
	}
}

func TestRunSkipsPassingTests(t *testing.T) {
	c := &fixableCheck{name: "fixer_test.PassingCheck"}
	runner.RegisterCheck(c)

	results := map[string]*runner.CheckResult{
		c.name: {
			Class: c.name,
			Tests: map[string]runner.CaseResult{
				"test_roster": {Status: runner.StatusPass},
			},
		},
	}

	outcomes := Run(context.Background(), ModeOn, &bytes.Buffer{}, nil, nil, results, nil)
	if len(outcomes) != 0 {
		t.Errorf("expected no fix attempts for a passing test, got %v", outcomes)
	}
}

func TestModeOffIsNoOp(t *testing.T) {
	outcomes := Run(context.Background(), ModeOff, &bytes.Buffer{}, nil, nil, nil, nil)
	if outcomes != nil {
		t.Error("expected nil outcomes for ModeOff")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeOff, "off": ModeOff, "on": ModeOn, "dry-run": ModeDryRun}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
