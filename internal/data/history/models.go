package history

import "time"

const SchemaVersion = 1

const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Run is one completed analysis run.
type Run struct {
	ID               string
	StartedAt        time.Time
	Duration         time.Duration
	ConfigPath       string
	Status           string
	Checks           int
	Rules            int
	Classes          int
	Violations       int
	UnusedExceptions int
	Suppressed       int
	Findings         []Finding
}

// Finding is one recorded violation or unused exception, in report order.
type Finding struct {
	RunID      string
	Seq        int
	Kind       string
	Check      string
	Annotation string
	Class      string
	Member     string
	Target     string
	Message    string
}
