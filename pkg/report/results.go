package report

import (
	"encoding/json"
	"sort"

	"github.com/auditree/auditree-go/pkg/locker"
	"github.com/auditree/auditree-go/pkg/runner"
)

// testResultDoc is the JSON shape of one test_* method's outcome in
// check_results.json.
type testResultDoc struct {
	Status         string   `json:"status"`
	Timestamp      string   `json:"timestamp"`
	Failures       []string `json:"failures,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Successes      []string `json:"successes,omitempty"`
	FailuresCount  int      `json:"failures_count"`
	WarningsCount  int      `json:"warnings_count"`
	SuccessesCount int      `json:"successes_count"`
}

// checkResultDoc is the JSON shape of one check class's entry in
// check_results.json.
type checkResultDoc struct {
	Checks         map[string]testResultDoc `json:"checks"`
	Reports        map[string]string        `json:"reports,omitempty"`
	Evidence       []string                  `json:"evidence,omitempty"`
	Accreditations []string                  `json:"accreditations,omitempty"`
}

// WriteResults renders check_results.json and stages it at the locker
// root through the free-form content path, so it is committed by the
// enclosing Checkin alongside everything else the check phase staged.
func WriteResults(lk *locker.Locker, results map[string]*runner.CheckResult, reports map[string]map[string]string) error {
	doc := make(map[string]checkResultDoc, len(results))

	for class, cr := range results {
		tests := make(map[string]testResultDoc, len(cr.Tests))
		for method, tr := range cr.Tests {
			tests[method] = testResultDoc{
				Status:         string(tr.Status),
				Timestamp:      tr.End.UTC().Format("2006-01-02T15:04:05Z"),
				Failures:       tr.Failures,
				Warnings:       tr.Warnings,
				Successes:      tr.Successes,
				FailuresCount:  len(tr.Failures),
				WarningsCount:  len(tr.Warnings),
				SuccessesCount: len(tr.Successes),
			}
		}

		accrs := append([]string(nil), cr.Accreditations...)
		sort.Strings(accrs)

		doc[class] = checkResultDoc{
			Checks:         tests,
			Reports:        reports[class],
			Accreditations: accrs,
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return lk.AddContentToLocker("check_results.json", append(raw, '\n'))
}
