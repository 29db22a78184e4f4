package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/auditree/auditree-go/pkg/credentials"
)

// Fetcher gathers raw evidence from an external system. Name
// conventionally takes the form "<package>.<Type>" so it can be
// addressed by --include/--exclude lists and by positional CLI
// arguments.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, rc *RunContext) error
}

// Check evaluates previously fetched evidence against a control and
// reports pass/warn/fail through RunContext's Fail/Warn/Success
// accumulators. Tests returns the method names this check exposes as
// test_* cases, in the order they should run.
type Check interface {
	Name() string
	Tests() []string
	RunTest(ctx context.Context, rc *RunContext, method string) error
}

// FixerCheck is optionally implemented by a Check whose failures can
// be repaired. pkg/fixer calls Fix once per failing test method,
// passing the method name; there is no per-method fix_<name> lookup.
type FixerCheck interface {
	Check
	// Fix attempts to repair the named failing test. In dry-run mode it
	// must not mutate anything and should return the rendered preview
	// message; in live mode it performs the repair and reports whether
	// it succeeded.
	Fix(ctx context.Context, rc *RunContext, method string, creds *credentials.Bag, dryRun bool) (fixed bool, message string, err error)
}

// ReportingCheck is optionally implemented by a Check that contributes
// report templates; see pkg/report. SourceFile returns the path (real
// or synthetic) of the file the check is defined in, used as the
// starting point for the upward template-discovery walk; it stands in
// for "the test's source file" since Go has no call-stack-based
// module introspection at report time.
type ReportingCheck interface {
	Check
	Reports() []string
	SourceFile() string
}

var (
	fetcherMu sync.Mutex
	fetchers  = map[string]Fetcher{}

	checkMu sync.Mutex
	checks  = map[string]Check{}
)

// RegisterFetcher adds f to the global fetcher registry. Panics on a
// duplicate name: two fetchers claiming the same identity is a
// programming error in a compliance module, not a runtime condition to
// recover from.
func RegisterFetcher(f Fetcher) {
	fetcherMu.Lock()
	defer fetcherMu.Unlock()
	if _, exists := fetchers[f.Name()]; exists {
		panic(fmt.Sprintf("runner: fetcher %q already registered", f.Name()))
	}
	fetchers[f.Name()] = f
}

// RegisterCheck adds c to the global check registry.
func RegisterCheck(c Check) {
	checkMu.Lock()
	defer checkMu.Unlock()
	if _, exists := checks[c.Name()]; exists {
		panic(fmt.Sprintf("runner: check %q already registered", c.Name()))
	}
	checks[c.Name()] = c
}

// Fetchers returns every registered fetcher, sorted by name.
func Fetchers() []Fetcher {
	fetcherMu.Lock()
	defer fetcherMu.Unlock()
	out := make([]Fetcher, 0, len(fetchers))
	for _, f := range fetchers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Checks returns every registered check, sorted by name.
func Checks() []Check {
	checkMu.Lock()
	defer checkMu.Unlock()
	out := make([]Check, 0, len(checks))
	for _, c := range checks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// resetRegistry clears both registries. Exposed only for tests that
// need a clean slate between cases.
func resetRegistry() {
	fetcherMu.Lock()
	fetchers = map[string]Fetcher{}
	fetcherMu.Unlock()
	checkMu.Lock()
	checks = map[string]Check{}
	checkMu.Unlock()
}
