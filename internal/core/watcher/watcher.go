// Package watcher reports debounced changes to compiled class inputs.
package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"classvis/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher batches file system events under class directories and archives
// and calls onChange with every path whose content actually changed.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	onChange     func([]string)
	callbackMu   sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer

	digests  map[string]uint64
	digestMu sync.Mutex

	// fileRoots are registered files; fileDirs are their parents, watched
	// only to observe them. treeDirs are watched recursively.
	fileRoots map[string]bool
	fileDirs  map[string]bool
	treeDirs  map[string]bool
	rootsMu   sync.RWMutex
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extFilters: map[string]bool{
			".class": true,
			".jar":   true,
			".zip":   true,
		},
		onChange: onChange,
		pending:   make(map[string]time.Time),
		digests:   make(map[string]uint64),
		fileRoots: make(map[string]bool),
		fileDirs:  make(map[string]bool),
		treeDirs:  make(map[string]bool),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch registers every path and starts the event loop. Directories are
// watched recursively; for a file (a jar, usually) its directory is watched
// and only events naming the file itself are reported.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			path = filepath.Clean(path)
			dir := filepath.Dir(path)
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
			w.rootsMu.Lock()
			w.fileRoots[path] = true
			w.fileDirs[dir] = true
			w.rootsMu.Unlock()
			w.remember(path)
			continue
		}
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			if err := w.fsWatcher.Add(path); err != nil {
				return err
			}
			w.rootsMu.Lock()
			w.treeDirs[filepath.Clean(path)] = true
			w.rootsMu.Unlock()
			return nil
		}
		if !w.shouldExcludeFile(path) {
			w.remember(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if !w.tracked(event.Name) {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// tracked reports whether path lies under a recursive root or is a
// registered file. Siblings of a file root are ignored.
func (w *Watcher) tracked(path string) bool {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.rootsMu.RLock()
	defer w.rootsMu.RUnlock()
	if !w.fileDirs[dir] || w.treeDirs[dir] {
		return true
	}
	return w.fileRoots[path]
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	changed := paths[:0]
	for _, path := range paths {
		if w.contentChanged(path) {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(changed)
}

// contentChanged compares the file's digest with the last one seen. Removed
// files always count as changed.
func (w *Watcher) contentChanged(path string) bool {
	sum, err := digest(path)

	w.digestMu.Lock()
	defer w.digestMu.Unlock()
	if err != nil {
		_, known := w.digests[path]
		delete(w.digests, path)
		return known || os.IsNotExist(err)
	}
	prev, known := w.digests[path]
	w.digests[path] = sum
	return !known || prev != sum
}

func (w *Watcher) remember(path string) {
	sum, err := digest(path)
	if err != nil {
		return
	}
	w.digestMu.Lock()
	w.digests[path] = sum
	w.digestMu.Unlock()
}

func digest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)
	if !w.extFilters[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
