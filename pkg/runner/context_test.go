package runner

import (
	"testing"

	"github.com/auditree/auditree-go/pkg/evidence"
)

func TestGetEvidenceDependencyCacheHit(t *testing.T) {
	rc := newRunContext(nil, nil, nil)
	ev := evidence.New(evidence.KindRaw, "demo", "x.json")
	ev.Content = []byte("{}")
	if err := rc.CacheEvidence("raw/demo/x.json", ev, false); err != nil {
		t.Fatalf("CacheEvidence: %v", err)
	}

	got, err := rc.GetEvidenceDependency("raw/demo/x.json")
	if err != nil {
		t.Fatalf("GetEvidenceDependency: %v", err)
	}
	if got != ev {
		t.Error("expected the cached evidence pointer back")
	}
}

func TestGetEvidenceDependencyMissingQueuesRerun(t *testing.T) {
	rc := newRunContext(nil, nil, nil)
	rc.setCurrentCase(CaseID{Module: "m", Class: "c", Method: "fetch"})

	_, err := rc.GetEvidenceDependency("raw/demo/missing.json")
	if err == nil {
		t.Fatal("expected DependencyUnavailableError")
	}
	if _, ok := err.(*evidence.DependencyUnavailableError); !ok {
		t.Errorf("err = %T, want *evidence.DependencyUnavailableError", err)
	}

	pending := rc.drainReruns()
	if !pending[CaseID{Module: "m", Class: "c", Method: "fetch"}] {
		t.Error("expected the current case queued for rerun")
	}
}

func TestCacheEvidenceRejectsDoubleRegistrationOutsideRerun(t *testing.T) {
	rc := newRunContext(nil, nil, nil)
	ev := evidence.New(evidence.KindRaw, "demo", "x.json")
	if err := rc.CacheEvidence("raw/demo/x.json", ev, false); err != nil {
		t.Fatalf("first CacheEvidence: %v", err)
	}
	if err := rc.CacheEvidence("raw/demo/x.json", ev, false); err == nil {
		t.Error("expected rejection of double registration")
	}
	if err := rc.CacheEvidence("raw/demo/x.json", ev, true); err != nil {
		t.Errorf("rerun registration should be allowed: %v", err)
	}
}

func TestFailWarnSuccessAccumulateAndReset(t *testing.T) {
	rc := newRunContext(nil, nil, nil)
	rc.setCurrentCase(CaseID{Module: "m", Class: "c", Method: "test_a"})
	rc.Fail("bad: %d", 1)
	rc.Warn("meh")
	rc.Success("ok")

	failures, warnings, successes := rc.counts()
	if len(failures) != 1 || failures[0] != "bad: 1" {
		t.Errorf("failures = %v", failures)
	}
	if len(warnings) != 1 || len(successes) != 1 {
		t.Errorf("warnings = %v, successes = %v", warnings, successes)
	}

	rc.setCurrentCase(CaseID{Module: "m", Class: "c", Method: "test_b"})
	failures, warnings, successes = rc.counts()
	if len(failures) != 0 || len(warnings) != 0 || len(successes) != 0 {
		t.Error("expected accumulators reset for the new case")
	}
}
