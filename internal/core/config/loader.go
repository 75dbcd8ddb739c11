package config

import (
	"os"
	"path/filepath"

	domainerrors "classvis/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML configuration, applies defaults and normalization,
// validates it, applies CLASSVIS_* environment overrides and finally resolves
// relative paths against the file's directory. Overridden paths resolve the
// same way as written ones.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeNotFound, "config file not found"),
				domainerrors.CtxPath, path)
		}
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeInternal, "read config"),
			domainerrors.CtxPath, path)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}

	ApplyEnvOverrides(cfg)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	Resolve(cfg, filepath.Dir(abs))
	return cfg, nil
}

// Parse decodes and validates TOML content. Paths are left as written.
func Parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "decode config")
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateChecks(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
