package app

import (
	"time"

	"classvis/internal/data/history"
	"classvis/internal/engine/visibility"
)

// RuleResult is the outcome of one visibility rule within a check.
type RuleResult struct {
	Annotation string
	Intent     string
	Stats      visibility.Stats
}

type CheckResult struct {
	Name  string
	Rules []RuleResult
}

// Totals sums rule statistics across a run.
type Totals struct {
	Checks           int
	Rules            int
	Classes          int
	Annotated        int
	Violations       int
	Suppressed       int
	UnusedExceptions int
}

// Report is the result of one completed run. Findings keep the order in which
// they were encountered.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Checks    []CheckResult
	Findings  []visibility.Finding
	Totals    Totals

	err error
}

// Err is nil when the run has no findings, otherwise a
// *visibility.CombinedError listing every message.
func (r Report) Err() error {
	return r.err
}

func (r Report) Passed() bool {
	return len(r.Findings) == 0
}

func (r Report) Status() string {
	if r.Passed() {
		return history.StatusPass
	}
	return history.StatusFail
}

func (r Report) historyRun(configPath string) history.Run {
	findings := make([]history.Finding, 0, len(r.Findings))
	for i, f := range r.Findings {
		findings = append(findings, history.Finding{
			RunID:      r.RunID,
			Seq:        i,
			Kind:       string(f.Kind),
			Check:      f.Check,
			Annotation: f.Annotation,
			Class:      f.Class,
			Member:     f.Member,
			Target:     f.Target,
			Message:    f.Message,
		})
	}
	return history.Run{
		ID:               r.RunID,
		StartedAt:        r.StartedAt,
		Duration:         r.Duration,
		ConfigPath:       configPath,
		Status:           r.Status(),
		Checks:           r.Totals.Checks,
		Rules:            r.Totals.Rules,
		Classes:          r.Totals.Classes,
		Violations:       r.Totals.Violations,
		UnusedExceptions: r.Totals.UnusedExceptions,
		Suppressed:       r.Totals.Suppressed,
		Findings:         findings,
	}
}
