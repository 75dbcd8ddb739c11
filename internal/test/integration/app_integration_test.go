package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"classvis/internal/core/app"
	"classvis/internal/core/config"
	domainerrors "classvis/internal/core/errors"
	"classvis/internal/data/history"
	cft "classvis/internal/engine/classfile/classfiletest"
	"classvis/internal/engine/visibility"
	"classvis/internal/ui/report/formats"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marker = "Lcom/acme/Private;"

// library holds the annotated API: a private method, a private field and a
// class marked private as a whole.
func library() map[string][]byte {
	api := cft.NewClass("com/acme/lib/Api")
	api.Field("secret", "I").Annotate(marker)
	api.Method("hidden", "()V").Annotate(marker).Return()
	api.Method("open", "()V").
		InvokeVirtual("com/acme/lib/Api", "hidden", "()V").
		GetField("com/acme/lib/Api", "secret", "I").
		Return()

	internal := cft.NewClass("com/acme/lib/Internal").Annotate(marker)
	internal.Method("work", "()V").Return()

	return map[string][]byte{
		"com/acme/lib/Api.class":      api.Bytes(),
		"com/acme/lib/Internal.class": internal.Bytes(),
	}
}

func createJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	_, err = zw.Create("META-INF/MANIFEST.MF")
	require.NoError(t, err)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeClass(t *testing.T, root string, c *cft.Class, internalName string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(internalName)+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, c.Bytes(), 0o644))
}

// createProject writes the library as a jar and the application classes as a
// directory tree.
func createProject(t *testing.T) (jar, classes string) {
	tmpDir := t.TempDir()
	jar = filepath.Join(tmpDir, "lib.jar")
	createJar(t, jar, library())

	classes = filepath.Join(tmpDir, "classes")
	caller := cft.NewClass("com/acme/app/Caller")
	caller.Method("call", "()V").InvokeVirtual("com/acme/lib/Api", "hidden", "()V").Return()
	caller.Method("peek", "()I").GetField("com/acme/lib/Api", "secret", "I").Return()
	writeClass(t, classes, caller, "com/acme/app/Caller")

	user := cft.NewClass("com/acme/app/User")
	user.Method("run", "()V").InvokeStatic("com/acme/lib/Internal", "create", "()Lcom/acme/lib/Internal;").Return()
	writeClass(t, classes, user, "com/acme/app/User")

	clean := cft.NewClass("com/acme/app/Clean")
	clean.Method("run", "()V").InvokeVirtual("com/acme/lib/Api", "open", "()V").Return()
	writeClass(t, classes, clean, "com/acme/app/Clean")
	return jar, classes
}

func projectConfig(jar, classes string, exceptions ...string) *config.Config {
	cfg := config.Default()
	cfg.Checks = []config.Check{{
		Name:  "app",
		Paths: []string{jar, classes},
		Visibilities: []config.Visibility{{
			Annotation: "com.acme.Private",
			Intent:     config.IntentPrivate,
			Exceptions: exceptions,
		}},
	}}
	return cfg
}

func TestFullPipelineIntegration(t *testing.T) {
	jar, classes := createProject(t)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	svc, err := app.New(projectConfig(jar, classes, "com.acme.app.User", "com.acme.app.Ghost"),
		app.WithHistoryStore(store))
	require.NoError(t, err)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Passed())
	assert.Equal(t, []string{
		"com.acme.app.Caller.call uses com.acme.lib.Api#hidden()V",
		"com.acme.app.Caller.peek uses com.acme.lib.Api#secret",
		"com.acme.app.Ghost marked as an exception for @Private but didn't occur",
	}, messages(report.Findings))
	assert.Equal(t, 2, report.Totals.Violations)
	assert.Equal(t, 1, report.Totals.Suppressed)
	assert.Equal(t, 1, report.Totals.UnusedExceptions)
	assert.Equal(t, 3, report.Totals.Annotated)

	var combined *visibility.CombinedError
	require.ErrorAs(t, report.Err(), &combined)
	assert.Len(t, combined.Messages, 3)

	runs, err := store.LoadRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, history.StatusFail, runs[0].Status)

	stored, err := store.LoadFindings(report.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, len(report.Findings))
}

func TestOwnClassAccessPasses(t *testing.T) {
	tmpDir := t.TempDir()
	jar := filepath.Join(tmpDir, "lib.jar")
	createJar(t, jar, library())

	cfg := config.Default()
	cfg.Checks = []config.Check{{
		Name:         "lib",
		Paths:        []string{jar},
		Visibilities: []config.Visibility{{Annotation: "com.acme.Private", Intent: config.IntentPrivate}},
	}}
	svc, err := app.New(cfg)
	require.NoError(t, err)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.NoError(t, report.Err())
	assert.Equal(t, 2, report.Totals.Classes)
}

func TestExcludeSkipsClasses(t *testing.T) {
	jar, classes := createProject(t)
	cfg := projectConfig(jar, classes, "com.acme.app.User")
	cfg.Checks[0].Exclude = []string{"com/acme/app/Caller.class"}

	svc, err := app.New(cfg)
	require.NoError(t, err)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Passed(), "findings: %v", messages(report.Findings))
}

func TestUnsupportedIntentIsFatal(t *testing.T) {
	jar, classes := createProject(t)
	cfg := projectConfig(jar, classes)
	cfg.Checks[0].Visibilities[0].Intent = config.IntentProtected

	svc, err := app.New(cfg)
	require.NoError(t, err)
	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeUnsupportedIntent))
	assert.Empty(t, report.Findings)
}

func TestRunsAreDeterministic(t *testing.T) {
	jar, classes := createProject(t)
	cfg := projectConfig(jar, classes, "com.acme.app.Ghost")

	svc, err := app.New(cfg)
	require.NoError(t, err)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	second, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, messages(first.Findings), messages(second.Findings))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestSARIFReport(t *testing.T) {
	jar, classes := createProject(t)
	svc, err := app.New(projectConfig(jar, classes))
	require.NoError(t, err)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	out, err := formats.Generate(config.FormatSARIF, formats.ReportData{
		RunID:    report.RunID,
		Findings: report.Findings,
	})
	require.NoError(t, err)

	var doc struct {
		Runs []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Runs, 1)
	// Caller.call, Caller.peek and User.run, with no exceptions configured.
	assert.Len(t, doc.Runs[0].Results, 3)
	for _, r := range doc.Runs[0].Results {
		assert.Equal(t, "CLSV001", r.RuleID)
	}
}

func messages(findings []visibility.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Message)
	}
	return out
}
