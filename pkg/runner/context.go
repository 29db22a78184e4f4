package runner

import (
	"fmt"
	"sync"

	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/credentials"
	"github.com/auditree/auditree-go/pkg/evidence"
	"github.com/auditree/auditree-go/pkg/locker"
)

// CaseID identifies one fetcher or check-test case for rerun
// bookkeeping and result reporting.
type CaseID struct {
	Module string
	Class  string
	Method string
}

func (c CaseID) String() string {
	return c.Module + "." + c.Class + "." + c.Method
}

// RunContext is passed to every fetcher and check case. It exposes the
// locker, configuration, and credentials bag for the run, plus the
// dependency-rerun and result-accumulation machinery the harness uses
// to classify each case.
type RunContext struct {
	Locker      *locker.Locker
	Config      *config.Config
	Credentials *credentials.Bag

	mu          sync.Mutex
	cache       map[string]*evidence.Evidence
	currentCase CaseID
	rerunQueue  map[CaseID]bool

	failures  []string
	warnings  []string
	successes []string
}

func newRunContext(l *locker.Locker, cfg *config.Config, creds *credentials.Bag) *RunContext {
	return &RunContext{
		Locker:      l,
		Config:      cfg,
		Credentials: creds,
		cache:       map[string]*evidence.Evidence{},
		rerunQueue:  map[CaseID]bool{},
	}
}

// setCurrentCase records which case is about to run and clears its
// accumulators, so a dependency lookup inside it attributes a rerun
// entry to the right case and a prior case's results never bleed into
// the next.
func (rc *RunContext) setCurrentCase(id CaseID) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.currentCase = id
	rc.failures = nil
	rc.warnings = nil
	rc.successes = nil
}

// CacheEvidence registers ev in the in-memory cache under its resolved
// path, for reuse by later cases in the same run and by
// GetEvidenceDependency. Re-registering the same path is rejected
// unless rerun is true (the current phase is a dependency rerun of the
// case that first registered it).
func (rc *RunContext) CacheEvidence(evPath string, ev *evidence.Evidence, rerun bool) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, exists := rc.cache[evPath]; exists && !rerun {
		return fmt.Errorf("runner: evidence %q already registered this run", evPath)
	}
	rc.cache[evPath] = ev
	return nil
}

// GetEvidenceDependency resolves a dependency this case needs before it
// can proceed. A present, content-bearing cache entry is returned
// directly. Failing that, the locker is consulted without caching the
// result. If the evidence is unavailable either way, the current case
// is queued for a rerun and evidence.DependencyUnavailableError is
// returned; callers should return that error immediately so the
// harness can classify the case and retry it later.
func (rc *RunContext) GetEvidenceDependency(evPath string) (*evidence.Evidence, error) {
	rc.mu.Lock()
	if ev, ok := rc.cache[evPath]; ok && ev != nil && ev.Content != nil {
		rc.mu.Unlock()
		return ev, nil
	}
	rc.mu.Unlock()

	if rc.Locker != nil {
		if ev, err := rc.Locker.GetEvidence(evPath, true); err == nil {
			return ev, nil
		}
	}

	rc.mu.Lock()
	rc.rerunQueue[rc.currentCase] = true
	rc.mu.Unlock()
	return nil, evidence.NewDependencyUnavailableError(evPath)
}

// drainReruns returns the queued rerun set and clears it.
func (rc *RunContext) drainReruns() map[CaseID]bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := rc.rerunQueue
	rc.rerunQueue = map[CaseID]bool{}
	return out
}

// Fail, Warn, and Success accumulate result detail for the currently
// executing case. The harness inspects them once the case function
// returns: any recorded failure means the case fails even if it
// returned a nil error, which is what turns silent failure
// accumulation into a reported test failure.
func (rc *RunContext) Fail(format string, args ...interface{}) { rc.record(&rc.failures, format, args) }

func (rc *RunContext) Warn(format string, args ...interface{}) { rc.record(&rc.warnings, format, args) }

func (rc *RunContext) Success(format string, args ...interface{}) {
	rc.record(&rc.successes, format, args)
}

func (rc *RunContext) record(dst *[]string, format string, args []interface{}) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

// counts returns copies of the current case's accumulated detail.
func (rc *RunContext) counts() (failures, warnings, successes []string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.failures...),
		append([]string(nil), rc.warnings...),
		append([]string(nil), rc.successes...)
}
