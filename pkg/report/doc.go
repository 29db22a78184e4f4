// Package report builds report evidence, a README table of contents,
// and the consolidated check_results.json file at the end of a check
// phase.
//
// For every registered runner.ReportingCheck, Build walks its Reports()
// paths. A report whose evidence already has content is left alone;
// otherwise its template is rendered with a context exposing the
// contributing test results and the report's own evidence object (the
// evidence the report used is not in that context), then added to the locker tagged with the
// checks and evidence that fed it. Once every report is added,
// BuildTOC rewrites the locker's README.md with a table linking each
// report to its contributing evidence, pinned by commit SHA.
package report
