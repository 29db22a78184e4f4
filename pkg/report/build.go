package report

import (
	"path"

	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/evidence"
	"github.com/auditree/auditree-go/pkg/locker"
	"github.com/auditree/auditree-go/pkg/runner"
)

// Build renders every registered runner.ReportingCheck's report paths
// whose evidence does not already have content, and stages each one in
// lk tagged with the contributing check and the evidence it used.
func Build(
	lk *locker.Locker,
	cfg *config.Config,
	signer evidence.Signer,
	results map[string]*runner.CheckResult,
	evidenceUsed []locker.EvidenceUsedRef,
) error {
	for _, c := range runner.Checks() {
		rp, ok := c.(runner.ReportingCheck)
		if !ok {
			continue
		}
		cr, ok := results[c.Name()]
		if !ok {
			continue
		}
		for _, reportPath := range rp.Reports() {
			if err := buildOne(lk, cfg, signer, c.Name(), cr, reportPath, rp.SourceFile(), evidenceUsed); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildOne(
	lk *locker.Locker,
	cfg *config.Config,
	signer evidence.Signer,
	checkClass string,
	cr *runner.CheckResult,
	reportPath, sourceFile string,
	evidenceUsed []locker.EvidenceUsedRef,
) error {
	category, name := path.Split(reportPath)
	category = path.Clean(category)
	if category == "." {
		category = ""
	}

	ev := evidence.New(evidence.KindReport, category, name)
	ev.Description = checkClass + " report"

	if existing, err := lk.GetEvidence(ev.Path(cfg), true); err == nil && existing.Content != nil {
		return nil
	}

	tmplPath, err := findTemplate(sourceFile, reportPath)
	if err != nil {
		return err
	}

	ctx := TemplateContext{Check: checkClass, Report: reportPath, Tests: cr.Tests, Evidence: ev}
	for method, tr := range cr.Tests {
		ctx.Successes = append(ctx.Successes, prefixAll(method, tr.Successes)...)
		ctx.Failures = append(ctx.Failures, prefixAll(method, tr.Failures)...)
		ctx.Warnings = append(ctx.Warnings, prefixAll(method, tr.Warnings)...)
	}

	rendered, err := renderTemplate(tmplPath, ctx)
	if err != nil {
		return err
	}

	if err := ev.SetContent(cfg, rendered, signer != nil, signer); err != nil {
		return err
	}

	return lk.AddEvidence(ev, []string{checkClass}, evidenceUsed)
}

func prefixAll(method string, items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = method + ": " + s
	}
	return out
}
