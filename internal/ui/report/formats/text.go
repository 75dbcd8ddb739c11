package formats

import (
	"fmt"
	"strings"
	"time"

	"classvis/internal/engine/visibility"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	violationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	exceptionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// TextGenerator renders terminal output.
type TextGenerator struct{}

func NewTextGenerator() *TextGenerator {
	return &TextGenerator{}
}

func (g *TextGenerator) Generate(data ReportData) string {
	var b strings.Builder
	summary := fmt.Sprintf("%d classes, %d rules, %d checks in %s",
		data.Classes, data.Rules, data.Checks, data.Duration.Round(time.Millisecond))

	if len(data.Findings) == 0 {
		b.WriteString(successStyle.Render("✔ no visibility violations"))
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(summary))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("visibility violations (%d)", len(data.Findings))))
	b.WriteString("\n")
	for _, f := range data.Findings {
		switch f.Kind {
		case visibility.FindingUnusedException:
			b.WriteString(exceptionStyle.Render("  unused  "))
		default:
			b.WriteString(violationStyle.Render("  violation  "))
		}
		b.WriteString(f.Message)
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(summary))
	b.WriteString("\n")
	return b.String()
}
