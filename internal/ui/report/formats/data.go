// Package formats renders a run's findings as text, markdown or SARIF.
package formats

import (
	"fmt"
	"strings"
	"time"

	"classvis/internal/engine/visibility"
)

// ReportData is everything a renderer needs from one run.
type ReportData struct {
	RunID       string
	GeneratedAt time.Time
	Duration    time.Duration
	Checks      int
	Rules       int
	Classes     int
	Suppressed  int
	Findings    []visibility.Finding
}

func (d ReportData) count(kind visibility.FindingKind) int {
	n := 0
	for _, f := range d.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Generate dispatches on the configured format name.
func Generate(format string, data ReportData) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return []byte(NewTextGenerator().Generate(data)), nil
	case "markdown":
		return []byte(NewMarkdownGenerator().Generate(data)), nil
	case "sarif":
		return GenerateSARIF(data)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
