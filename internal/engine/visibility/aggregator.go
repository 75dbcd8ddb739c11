package visibility

import (
	"fmt"
	"strings"

	"classvis/internal/engine/element"
)

type FindingKind string

const (
	FindingViolation       FindingKind = "violation"
	FindingUnusedException FindingKind = "unused_exception"
)

// Finding is one recoverable problem. Violations carry the referencing member
// and target; unused exceptions carry only the exception class.
type Finding struct {
	Kind       FindingKind
	Check      string
	Annotation string
	Class      string
	Member     string
	Target     string
	TargetKind string
	Message    string
}

// Aggregator collects findings across every rule and check of a run, in the
// order they are encountered.
type Aggregator struct {
	findings []Finding
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) AddViolation(check, annotation string, from element.Class, member string, target element.Element) {
	a.findings = append(a.findings, Finding{
		Kind:       FindingViolation,
		Check:      check,
		Annotation: annotation,
		Class:      from.String(),
		Member:     member,
		Target:     target.String(),
		TargetKind: target.Kind().String(),
		Message:    fmt.Sprintf("%s.%s uses %s", from, member, target),
	})
}

func (a *Aggregator) AddUnusedException(check, annotation, className string) {
	a.findings = append(a.findings, Finding{
		Kind:       FindingUnusedException,
		Check:      check,
		Annotation: annotation,
		Class:      className,
		Message: fmt.Sprintf("%s marked as an exception for @%s but didn't occur",
			className, element.SimpleName(annotation)),
	})
}

func (a *Aggregator) Len() int {
	return len(a.findings)
}

func (a *Aggregator) Findings() []Finding {
	out := make([]Finding, len(a.findings))
	copy(out, a.findings)
	return out
}

func (a *Aggregator) Messages() []string {
	out := make([]string, 0, len(a.findings))
	for _, f := range a.findings {
		out = append(out, f.Message)
	}
	return out
}

// Count returns the number of findings of the given kind.
func (a *Aggregator) Count(kind FindingKind) int {
	n := 0
	for _, f := range a.findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Err is nil when nothing was recorded, otherwise a *CombinedError listing
// every finding.
func (a *Aggregator) Err() error {
	if len(a.findings) == 0 {
		return nil
	}
	return &CombinedError{Title: "visibility violations", Messages: a.Messages()}
}

// CombinedError reports every finding of a run at once.
type CombinedError struct {
	Title    string
	Messages []string
}

func (e *CombinedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):", e.Title, len(e.Messages))
	for _, msg := range e.Messages {
		b.WriteString("\n  ")
		b.WriteString(msg)
	}
	return b.String()
}
