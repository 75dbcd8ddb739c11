package ports

import (
	"context"
	"io"

	"classvis/internal/data/history"
)

// ClassBinary is one compiled class, opened lazily. Callers must close the
// returned reader; for archive entries closing also releases the archive.
type ClassBinary struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// ClassSource resolves check paths into the class binaries to analyze.
type ClassSource interface {
	Resolve(ctx context.Context, paths []string, exclude []string) ([]ClassBinary, error)
}

// HistoryStore persists completed runs and their findings.
type HistoryStore interface {
	SaveRun(run history.Run) error
	LoadRuns(limit int) ([]history.Run, error)
	LoadFindings(runID string) ([]history.Finding, error)
}
