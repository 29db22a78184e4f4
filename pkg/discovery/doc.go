// Package discovery locates the compliance tree that a pipeline run
// operates over (spec.md §4.B).
//
// Given one or more starting paths, FindTop walks each upward until it
// finds a directory containing the controls manifest — that directory
// is the "top". From each top, WalkEvidenceDirs recursively locates
// every directory named "evidences" (where fetcher/check packages
// register their evidence descriptors at package init), and
// WalkSourceFiles locates every source file following the fetch_/test_
// naming convention, for --include/--exclude filtering and for
// diagnostics when the controls manifest references a check that no
// file on disk defines.
//
// Discovery errors are never fatal: every walker returns a slice of
// Diagnostic strings alongside its results, for the caller to log and
// continue.
package discovery
