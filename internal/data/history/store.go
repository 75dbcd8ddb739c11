package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerrors "classvis/internal/core/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
)

// Store persists runs and their findings in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or migrates the database at path. A zero busyTimeout uses the
// default.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores the run and its findings atomically. A run without an ID is
// given a fresh UUID.
func (s *Store) SaveRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusPass
		if len(run.Findings) > 0 {
			run.Status = StatusFail
		}
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
INSERT INTO runs (
  id, started_at_utc, duration_ms, config_path, status, check_count, rule_count,
  class_count, violation_count, unused_exception_count, suppressed_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  started_at_utc=excluded.started_at_utc,
  duration_ms=excluded.duration_ms,
  config_path=excluded.config_path,
  status=excluded.status,
  check_count=excluded.check_count,
  rule_count=excluded.rule_count,
  class_count=excluded.class_count,
  violation_count=excluded.violation_count,
  unused_exception_count=excluded.unused_exception_count,
  suppressed_count=excluded.suppressed_count
`,
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.ConfigPath,
			run.Status,
			run.Checks,
			run.Rules,
			run.Classes,
			run.Violations,
			run.UnusedExceptions,
			run.Suppressed,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`DELETE FROM findings WHERE run_id = ?`, run.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, f := range run.Findings {
			_, err := tx.Exec(`
INSERT INTO findings (run_id, seq, kind, check_name, annotation, class_name, member, target, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, i, f.Kind, f.Check, f.Annotation, f.Class, f.Member, f.Target, f.Message)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadRuns returns the most recent runs, newest first, without findings.
// A limit <= 0 returns every run.
func (s *Store) LoadRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	query := `
SELECT
  id, started_at_utc, duration_ms, config_path, status, check_count, rule_count,
  class_count, violation_count, unused_exception_count, suppressed_count
FROM runs
ORDER BY started_at_utc DESC, rowid DESC
LIMIT ?
`
	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(
			&run.ID,
			&startedRaw,
			&durationMS,
			&run.ConfigPath,
			&run.Status,
			&run.Checks,
			&run.Rules,
			&run.Classes,
			&run.Violations,
			&run.UnusedExceptions,
			&run.Suppressed,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.StartedAt = started.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadFindings returns a run's findings in the order they were reported.
func (s *Store) LoadFindings(runID string) ([]Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.withRetry("load findings", func() error {
		return s.db.QueryRow(`SELECT COUNT(1) FROM runs WHERE id = ?`, runID).Scan(&exists)
	})
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domainerrors.AddContext(
			domainerrors.Newf(domainerrors.CodeNotFound, "run %q not found", runID),
			domainerrors.CtxOperation, "load findings")
	}

	var rows *sql.Rows
	err = s.withRetry("load findings", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT run_id, seq, kind, check_name, annotation, class_name, member, target, message
FROM findings
WHERE run_id = ?
ORDER BY seq ASC
`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	findings := make([]Finding, 0)
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.RunID, &f.Seq, &f.Kind, &f.Check, &f.Annotation, &f.Class, &f.Member, &f.Target, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding row: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finding rows: %w", err)
	}
	return findings, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
