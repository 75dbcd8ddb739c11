package formats

import (
	"fmt"
	"strings"
	"time"

	"classvis/internal/engine/visibility"
	"classvis/internal/shared/version"
)

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(data ReportData) string {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Visibility Report\n")
	b.WriteString("run_id: " + nonEmpty(data.RunID, "unknown") + "\n")
	b.WriteString("generated_at: " + data.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + version.Version + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Visibility Report\n\n")
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Checks | %d |\n", data.Checks))
	b.WriteString(fmt.Sprintf("| Rules | %d |\n", data.Rules))
	b.WriteString(fmt.Sprintf("| Classes | %d |\n", data.Classes))
	b.WriteString(fmt.Sprintf("| Violations | %d |\n", data.count(visibility.FindingViolation)))
	b.WriteString(fmt.Sprintf("| Unused Exceptions | %d |\n", data.count(visibility.FindingUnusedException)))
	b.WriteString(fmt.Sprintf("| Suppressed | %d |\n\n", data.Suppressed))

	b.WriteString("## Findings\n")
	if len(data.Findings) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}
	b.WriteString("| # | Kind | Check | Annotation | Class | Member | Target |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for i, f := range data.Findings {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | @%s | `%s` | %s | %s |\n",
			i+1,
			f.Kind,
			escapeCell(f.Check),
			escapeCell(simpleAnnotation(f.Annotation)),
			escapeCell(f.Class),
			codeOrDash(f.Member),
			codeOrDash(f.Target),
		))
	}
	return b.String()
}
