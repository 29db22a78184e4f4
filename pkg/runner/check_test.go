package runner

import (
	"context"
	"testing"

	"github.com/auditree/auditree-go/pkg/controls"
)

type recordingCheck struct {
	name   string
	tests  []string
	fail   map[string]bool
	called []string
}

func (c *recordingCheck) Name() string    { return c.name }
func (c *recordingCheck) Tests() []string { return c.tests }
func (c *recordingCheck) RunTest(ctx context.Context, rc *RunContext, method string) error {
	c.called = append(c.called, method)
	if c.fail[method] {
		rc.Fail("%s failed", method)
	} else {
		rc.Success("%s ok", method)
	}
	return nil
}

func TestCheckPhaseFiltersByAccreditation(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	included := &recordingCheck{name: "pkg.Included", tests: []string{"test_a"}}
	excluded := &recordingCheck{name: "pkg.Excluded", tests: []string{"test_b"}}
	RegisterCheck(included)
	RegisterCheck(excluded)

	manifest, err := controls.Parse("controls.json", []byte(`{
		"pkg.Included.test_a": ["soc2"],
		"pkg.Excluded.test_b": ["iso27001"]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	r := &Runner{controls: manifest}
	rc := newRunContext(nil, nil, nil)
	results, _ := r.runCheckPhase(context.Background(), rc, CheckOptions{Accreditations: []string{"soc2"}})

	if _, ok := results["pkg.Included"]; !ok {
		t.Error("expected pkg.Included in results")
	}
	if _, ok := results["pkg.Excluded"]; ok {
		t.Error("pkg.Excluded should have been filtered out")
	}
	if len(excluded.called) != 0 {
		t.Error("excluded check's test method should not have run")
	}
}

func TestCheckPhaseFailureAccumulationOverridesNilError(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	c := &recordingCheck{
		name:  "pkg.Flaky",
		tests: []string{"test_silent_fail"},
		fail:  map[string]bool{"test_silent_fail": true},
	}
	RegisterCheck(c)

	manifest, err := controls.Parse("controls.json", []byte(`{"pkg.Flaky.test_silent_fail": ["soc2"]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	r := &Runner{controls: manifest}
	rc := newRunContext(nil, nil, nil)
	results, _ := r.runCheckPhase(context.Background(), rc, CheckOptions{Accreditations: nil})

	res := results["pkg.Flaky"].Tests["test_silent_fail"]
	if res.Err != nil {
		t.Fatalf("RunTest returned nil, got recorded err %v", res.Err)
	}
	if res.Status != StatusFail {
		t.Errorf("status = %v, want fail (failures_count must force a fail)", res.Status)
	}
}

func TestCheckPhaseDiagnosesUnregisteredManifestCheck(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	manifest, err := controls.Parse("controls.json", []byte(`{"pkg.Ghost.test_x": ["soc2"]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	r := &Runner{controls: manifest}
	rc := newRunContext(nil, nil, nil)
	_, diags := r.runCheckPhase(context.Background(), rc, CheckOptions{})

	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want 1 entry for the unregistered check", diags)
	}
}
