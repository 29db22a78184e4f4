package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/auditree/auditree-go/pkg/evidence"
	"github.com/auditree/auditree-go/pkg/runner"
)

const (
	templatesDirName   = "templates"
	defaultTemplateName = "default.md.tmpl"
)

// TemplateContext is exposed to a report template: the contributing
// check's aggregated results and the report's own evidence object.
type TemplateContext struct {
	Check     string
	Report    string
	Tests     map[string]runner.CaseResult
	Successes []string
	Failures  []string
	Warnings  []string
	Evidence  *evidence.Evidence
}

// findTemplate walks upward from the directory containing sourceFile
// looking for templatesDirName/<reportPath>.tmpl, the first hit
// winning. If none exists anywhere in the walk, the same walk is
// repeated for templatesDirName/defaultTemplateName.
func findTemplate(sourceFile, reportPath string) (string, error) {
	if path, ok := walkUpFor(sourceFile, reportPath+".tmpl"); ok {
		return path, nil
	}
	if path, ok := walkUpFor(sourceFile, defaultTemplateName); ok {
		return path, nil
	}
	return "", fmt.Errorf("report: no template found for %q starting from %q", reportPath, sourceFile)
}

func walkUpFor(sourceFile, relName string) (string, bool) {
	dir := filepath.Dir(sourceFile)
	for {
		candidate := filepath.Join(dir, templatesDirName, relName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// renderTemplate parses and executes the template at path against ctx.
// html/template is used for its autoescaping even though the output is
// markdown: the content it escapes (angle brackets, quotes) is rare in
// compliance evidence and autoescaping is cheaper than an injection
// bug in a document someone will paste into a ticket.
func renderTemplate(path string, ctx TemplateContext) ([]byte, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("report: parse template %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("report: render template %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
