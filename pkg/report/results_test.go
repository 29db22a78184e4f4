package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/locker"
	"github.com/auditree/auditree-go/pkg/runner"
)

func newTestLocker(t *testing.T) (*locker.Locker, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	lk, err := locker.New(locker.Options{Name: "demo", LocalPath: dir, Config: cfg})
	if err != nil {
		t.Fatalf("locker.New: %v", err)
	}
	if err := lk.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return lk, dir
}

func TestWriteResultsProducesValidJSON(t *testing.T) {
	lk, dir := newTestLocker(t)

	results := map[string]*runner.CheckResult{
		"pkg.PeopleCheck": {
			Class:          "pkg.PeopleCheck",
			Accreditations: []string{"soc2", "iso27001"},
			Tests: map[string]runner.CaseResult{
				"test_roster": {
					Status:    runner.StatusFail,
					End:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
					Failures:  []string{"missing entry"},
					Successes: []string{},
				},
			},
		},
	}

	if err := WriteResults(lk, results, nil); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "check_results.json"))
	if err != nil {
		t.Fatalf("read check_results.json: %v", err)
	}

	var doc map[string]checkResultDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	cr, ok := doc["pkg.PeopleCheck"]
	if !ok {
		t.Fatal("missing pkg.PeopleCheck entry")
	}
	test := cr.Checks["test_roster"]
	if test.Status != "fail" || test.FailuresCount != 1 {
		t.Errorf("test_roster = %+v", test)
	}
}
