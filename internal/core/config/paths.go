package config

import (
	"path/filepath"
	"strings"
)

// Resolve makes the project root absolute against baseDir, then every check
// path, the database path and the output path absolute against the root.
func Resolve(cfg *Config, baseDir string) {
	root := ResolveRelative(baseDir, cfg.Paths.ProjectRoot)
	cfg.Paths.ProjectRoot = root

	for i := range cfg.Checks {
		paths := cfg.Checks[i].Paths
		for j, p := range paths {
			paths[j] = ResolveRelative(root, p)
		}
	}
	if cfg.DB.Path != "" {
		cfg.DB.Path = ResolveRelative(root, cfg.DB.Path)
	}
	if cfg.Output.Path != "" {
		cfg.Output.Path = ResolveRelative(root, cfg.Output.Path)
	}
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// WatchRoots lists every check input, used to seed watch mode.
func (c *Config) WatchRoots() []string {
	seen := make(map[string]bool)
	var roots []string
	for _, check := range c.Checks {
		for _, p := range check.Paths {
			if seen[p] {
				continue
			}
			seen[p] = true
			roots = append(roots, p)
		}
	}
	return roots
}
