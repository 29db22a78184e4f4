// Package controls parses the accreditation manifest (spec.md §4.F):
// a JSON document mapping check ids to the accreditations (compliance
// regimes) they satisfy.
//
// The manifest has two accepted shapes, both reducible to the same flat
// set of accreditations per check id:
//
//	{"my.module.Check.test_x": ["soc2", "iso27001"]}
//
//	{"my.module.Check.test_x": {"cloud": {"aws": ["soc2"], "gcp": ["iso27001"]}}}
//
// Load and Parse normalize either shape at parse time, so the rest of
// the pipeline (the runner's accreditation filter, report builder,
// notifiers) only ever deals with a flat map.
package controls
