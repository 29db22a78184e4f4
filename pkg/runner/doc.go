// Package runner discovers and executes fetcher and check cases
// against a locker, in two ordered phases.
//
// The fetch phase runs every registered Fetcher once, then replays any
// case whose Fetch method returned evidence.DependencyUnavailableError
// until the rerun queue empties, reaches a fixed point, or hits an
// iteration bound — see RunContext.GetEvidenceDependency.
//
// The check phase runs every registered Check whose test methods
// intersect the requested accreditations (via pkg/controls), building
// one CheckResult per check class.
//
// Fetchers and checks register themselves at package init time with
// RegisterFetcher and RegisterCheck, the way database/sql drivers
// register themselves with sql.Register: a compliance module's package
// is imported for its side effect, and its cases become visible to any
// Runner in the same binary.
package runner
