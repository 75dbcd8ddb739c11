package classtree

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	domainerrors "classvis/internal/core/errors"
	"classvis/internal/core/ports"
	cft "classvis/internal/engine/classfile/classfiletest"

	"github.com/klauspost/compress/zip"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, buf.Bytes())
}

func readAll(t *testing.T, bin ports.ClassBinary) []byte {
	t.Helper()
	rc, err := bin.Open()
	if err != nil {
		t.Fatalf("open %s: %v", bin.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", bin.Name, err)
	}
	return data
}

func names(bins []ports.ClassBinary) []string {
	out := make([]string, 0, len(bins))
	for _, b := range bins {
		out = append(out, b.Name)
	}
	return out
}

func TestResolve_Directory(t *testing.T) {
	root := t.TempDir()
	a := cft.NewClass("com/acme/A").Bytes()
	writeFile(t, filepath.Join(root, "com/acme/A.class"), a)
	writeFile(t, filepath.Join(root, "com/acme/B.class"), cft.NewClass("com/acme/B").Bytes())
	writeFile(t, filepath.Join(root, "com/acme/generated/G.class"), cft.NewClass("com/acme/generated/G").Bytes())
	writeFile(t, filepath.Join(root, "com/acme/notes.txt"), []byte("ignored"))

	bins, err := New().Resolve(context.Background(), []string{root}, []string{"**/generated/**"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := names(bins)
	want := []string{filepath.Join(root, "com/acme/A.class"), filepath.Join(root, "com/acme/B.class")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if !bytes.Equal(readAll(t, bins[0]), a) {
		t.Fatalf("content mismatch for %s", bins[0].Name)
	}
}

func TestResolve_ArchiveAndSingleFile(t *testing.T) {
	root := t.TempDir()
	jar := filepath.Join(root, "lib", "app.jar")
	c := cft.NewClass("com/acme/C").Bytes()
	writeJar(t, jar, map[string][]byte{
		"com/acme/C.class":                 c,
		"com/acme/internal/D.class":        cft.NewClass("com/acme/internal/D").Bytes(),
		"META-INF/MANIFEST.MF":             []byte("Manifest-Version: 1.0\n"),
		"META-INF/versions/11/com/E.class": cft.NewClass("com/E").Bytes(),
		"module-info.class":                []byte{0xCA, 0xFE},
	})
	single := filepath.Join(root, "Single.class")
	writeFile(t, single, cft.NewClass("Single").Bytes())

	bins, err := New().Resolve(context.Background(), []string{single, jar, single}, []string{"com/acme/internal/*"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := names(bins)
	want := []string{single, jar + "!/com/acme/C.class"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if !bytes.Equal(readAll(t, bins[1]), c) {
		t.Fatalf("archive entry content mismatch")
	}
	// Entries can be opened again after the first reader is closed.
	if !bytes.Equal(readAll(t, bins[1]), c) {
		t.Fatalf("archive entry not reopenable")
	}
}

func TestResolve_Errors(t *testing.T) {
	root := t.TempDir()
	_, err := New().Resolve(context.Background(), []string{filepath.Join(root, "missing")}, nil)
	if !domainerrors.IsCode(err, domainerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	txt := filepath.Join(root, "readme.txt")
	writeFile(t, txt, []byte("x"))
	_, err = New().Resolve(context.Background(), []string{txt}, nil)
	if !domainerrors.IsCode(err, domainerrors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	broken := filepath.Join(root, "broken.jar")
	writeFile(t, broken, []byte("not a zip"))
	_, err = New().Resolve(context.Background(), []string{broken}, nil)
	if !domainerrors.IsCode(err, domainerrors.CodeParseFailure) {
		t.Fatalf("expected PARSE_FAILURE, got %v", err)
	}

	_, err = New().Resolve(context.Background(), []string{root}, []string{"["})
	if !domainerrors.IsCode(err, domainerrors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR for bad glob, got %v", err)
	}
}

func TestResolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Resolve(ctx, []string{t.TempDir()}, nil); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryAndStatic(t *testing.T) {
	data := []byte{1, 2, 3}
	src := Static{Memory("a", data)}
	bins, err := src.Resolve(context.Background(), []string{"ignored"}, nil)
	if err != nil || len(bins) != 1 {
		t.Fatalf("Resolve = %v, %v", bins, err)
	}
	if !bytes.Equal(readAll(t, bins[0]), data) {
		t.Fatalf("memory content mismatch")
	}
}
