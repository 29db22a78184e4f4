package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/auditree/auditree-go/pkg/locker"
)

const tocMarker = "<!-- auditree:toc:start -->"
const tocEndMarker = "<!-- auditree:toc:end -->"

// BuildTOC reads every reports/index.json entry and rewrites the
// locker's README.md so its body is prefixed with a table of every
// report: description, owning check, last update, and a link to each
// piece of contributing evidence pinned by commit SHA. The table has an
// Accreditations column, but it is always empty: report index entries
// do not record accreditations.
// Any existing README body is preserved below the table.
func BuildTOC(lk *locker.Locker) error {
	entries, err := lk.GetReportsMetadata()
	if err != nil {
		return fmt.Errorf("report: read report metadata: %w", err)
	}

	table := renderTOCTable(entries)

	existing, err := lk.ReadContentFromLocker("README.md")
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("report: read README.md: %w", err)
	}
	body := stripExistingTOC(string(existing))

	var out strings.Builder
	out.WriteString(tocMarker)
	out.WriteString("\n")
	out.WriteString(table)
	out.WriteString(tocEndMarker)
	out.WriteString("\n")
	if body != "" {
		out.WriteString("\n")
		out.WriteString(body)
	}

	return lk.AddContentToLocker("README.md", []byte(out.String()))
}

func renderTOCTable(entries []locker.ReportEntry) string {
	var b strings.Builder
	b.WriteString("| Report | Description | Checks | Accreditations | Last update | Evidence |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")

	for _, e := range entries {
		accrs := "" // controls manifest lookups happen at the runner layer; the
		// index itself only records which checks contributed.
		b.WriteString(fmt.Sprintf(
			"| %s | %s | %s | %s | %s | %s |\n",
			e.Path,
			e.Entry.Description,
			strings.Join(e.Entry.Checks, ", "),
			accrs,
			e.Entry.LastUpdate,
			renderEvidenceLinks(e.Entry.EvidenceUsed),
		))
	}
	return b.String()
}

func renderEvidenceLinks(refs []locker.EvidenceUsedRef) string {
	if len(refs) == 0 {
		return ""
	}
	links := make([]string, 0, len(refs))
	for _, ref := range refs {
		sha := ref.CommitSHA
		if len(sha) > 8 {
			sha = sha[:8]
		}
		if len(ref.Partitions) > 0 {
			links = append(links, fmt.Sprintf("[%s@%s](%s) (%d partitions)", ref.Path, sha, ref.LockerURL, len(ref.Partitions)))
			continue
		}
		links = append(links, fmt.Sprintf("[%s@%s](%s)", ref.Path, sha, ref.LockerURL))
	}
	sort.Strings(links)
	return strings.Join(links, "; ")
}

func stripExistingTOC(content string) string {
	start := strings.Index(content, tocMarker)
	if start == -1 {
		return strings.TrimSpace(content)
	}
	end := strings.Index(content, tocEndMarker)
	if end == -1 {
		return strings.TrimSpace(content[:start])
	}
	rest := content[end+len(tocEndMarker):]
	return strings.TrimSpace(strings.TrimSpace(content[:start]) + "\n" + rest)
}
