package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domainerrors "classvis/internal/core/errors"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveLoadRuns(t *testing.T) {
	store := openTemp(t)

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := Run{
		ID:         "run-1",
		StartedAt:  base,
		Duration:   1500 * time.Millisecond,
		ConfigPath: "/repo/classvis.toml",
		Checks:     1,
		Rules:      2,
		Classes:    40,
		Violations: 1,
		Findings: []Finding{
			{Kind: "violation", Check: "main", Annotation: "com.acme.Private", Class: "com.acme.B", Member: "run", Target: "com.acme.A#m()V", Message: "com.acme.B.run uses com.acme.A#m()V"},
			{Kind: "unused_exception", Check: "main", Annotation: "com.acme.Private", Class: "com.acme.Q", Message: "com.acme.Q marked as an exception for @Private but didn't occur"},
		},
	}
	second := Run{StartedAt: base.Add(time.Hour), Classes: 41}

	if err := store.SaveRun(first); err != nil {
		t.Fatalf("save first run: %v", err)
	}
	if err := store.SaveRun(second); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	runs, err := store.LoadRuns(10)
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Classes != 41 || runs[0].Status != StatusPass || runs[0].ID == "" {
		t.Fatalf("expected newest passing run first with a generated id, got %+v", runs[0])
	}
	if got := runs[1]; got.ID != "run-1" || got.Status != StatusFail || got.Duration != 1500*time.Millisecond || !got.StartedAt.Equal(base) {
		t.Fatalf("first run did not roundtrip: %+v", got)
	}

	limited, err := store.LoadRuns(1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not applied: %v, %v", limited, err)
	}

	findings, err := store.LoadFindings("run-1")
	if err != nil {
		t.Fatalf("load findings: %v", err)
	}
	if len(findings) != 2 || findings[0].Seq != 0 || findings[1].Kind != "unused_exception" {
		t.Fatalf("unexpected findings %+v", findings)
	}
	if findings[0].Target != "com.acme.A#m()V" || findings[0].RunID != "run-1" {
		t.Fatalf("finding fields did not roundtrip: %+v", findings[0])
	}
}

func TestStore_SaveRunReplacesFindings(t *testing.T) {
	store := openTemp(t)
	run := Run{ID: "same", Findings: []Finding{{Kind: "violation", Message: "a"}, {Kind: "violation", Message: "b"}}}
	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}
	run.Findings = run.Findings[:1]
	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}
	findings, err := store.LoadFindings("same")
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected findings to be replaced, got %d", len(findings))
	}
}

func TestStore_LoadFindingsUnknownRun(t *testing.T) {
	store := openTemp(t)
	_, err := store.LoadFindings("missing")
	if !domainerrors.IsCode(err, domainerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Open(tmpDir, 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "history.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	if err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
}
