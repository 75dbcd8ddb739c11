// Package classtree turns check paths (class directories, jars, single class
// files) into the class binaries the analysis reads.
package classtree

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	domainerrors "classvis/internal/core/errors"
	"classvis/internal/core/ports"
	"classvis/internal/shared/util"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/zip"
)

const classSuffix = ".class"

// Tree resolves paths on the local file system.
type Tree struct{}

var _ ports.ClassSource = (*Tree)(nil)

func New() *Tree {
	return &Tree{}
}

// Resolve expands every path into class binaries sorted by name. Exclude globs
// are matched against the path relative to a directory root, or against the
// entry name inside an archive.
func (t *Tree) Resolve(ctx context.Context, paths []string, exclude []string) ([]ports.ClassBinary, error) {
	matchers, err := compileExcludes(exclude)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]ports.ClassBinary)
	for _, root := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, domainerrors.AddContext(
					domainerrors.Wrap(err, domainerrors.CodeNotFound, "class path does not exist"),
					domainerrors.CtxPath, root)
			}
			return nil, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeInternal, "stat class path"),
				domainerrors.CtxPath, root)
		}

		var found []ports.ClassBinary
		switch {
		case info.IsDir():
			found, err = walkDir(ctx, root, matchers)
		case isArchive(root):
			found, err = listArchive(root, matchers)
		case strings.HasSuffix(root, classSuffix):
			found = []ports.ClassBinary{fileBinary(root, root)}
		default:
			err = domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeValidationError, "unsupported class path; expected a directory, .jar, .zip or .class"),
				domainerrors.CtxPath, root)
		}
		if err != nil {
			return nil, err
		}
		for _, bin := range found {
			byName[bin.Name] = bin
		}
		slog.Debug("resolved class path", "path", root, "classes", len(found))
	}

	out := make([]ports.ClassBinary, 0, len(byName))
	for _, name := range util.SortedStringKeys(byName) {
		out = append(out, byName[name])
	}
	return out, nil
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(util.NormalizePatternPath(pattern), '/')
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid exclude pattern "+pattern)
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

func excluded(matchers []glob.Glob, rel string) bool {
	for _, m := range matchers {
		if m.Match(rel) {
			return true
		}
	}
	return false
}

func isArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jar" || ext == ".zip"
}

func walkDir(ctx context.Context, root string, matchers []glob.Glob) ([]ports.ClassBinary, error) {
	var out []ports.ClassBinary
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), classSuffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if excluded(matchers, util.NormalizePatternPath(rel)) {
			return nil
		}
		out = append(out, fileBinary(path, path))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeInternal, "walk class directory"),
			domainerrors.CtxPath, root)
	}
	return out, nil
}

func fileBinary(name, path string) ports.ClassBinary {
	return ports.ClassBinary{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

func listArchive(archive string, matchers []glob.Glob) ([]ports.ClassBinary, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeParseFailure, "open archive"),
			domainerrors.CtxPath, archive)
	}
	defer zr.Close()

	var out []ports.ClassBinary
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, classSuffix) {
			continue
		}
		// Multi-release and module descriptors are not ordinary classes.
		if strings.HasPrefix(f.Name, "META-INF/") || strings.HasSuffix(f.Name, "module-info.class") {
			continue
		}
		if excluded(matchers, f.Name) {
			continue
		}
		out = append(out, archiveBinary(archive, f.Name))
	}
	return out, nil
}

// archiveBinary reopens the archive on every Open; closing the entry closes
// the archive.
func archiveBinary(archive, entry string) ports.ClassBinary {
	return ports.ClassBinary{
		Name: archive + "!/" + entry,
		Open: func() (io.ReadCloser, error) {
			zr, err := zip.OpenReader(archive)
			if err != nil {
				return nil, err
			}
			for _, f := range zr.File {
				if f.Name != entry {
					continue
				}
				rc, err := f.Open()
				if err != nil {
					zr.Close()
					return nil, err
				}
				return &entryReader{ReadCloser: rc, archive: zr}, nil
			}
			zr.Close()
			return nil, fs.ErrNotExist
		},
	}
}

type entryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *entryReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// Memory wraps bytes already in memory as a class binary.
func Memory(name string, data []byte) ports.ClassBinary {
	return ports.ClassBinary{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Static is a ClassSource over a fixed set of binaries, ignoring paths and
// excludes.
type Static []ports.ClassBinary

func (s Static) Resolve(ctx context.Context, _ []string, _ []string) ([]ports.ClassBinary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ports.ClassBinary, len(s))
	copy(out, s)
	return out, nil
}
