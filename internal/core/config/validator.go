package config

import (
	"fmt"
	"strings"

	domainerrors "classvis/internal/core/errors"
	"classvis/internal/engine/element"

	"github.com/gobwas/glob"
)

func invalid(format string, args ...interface{}) error {
	return domainerrors.Newf(domainerrors.CodeValidationError, format, args...)
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return invalid("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateChecks(cfg *Config) error {
	if len(cfg.Checks) == 0 {
		return invalid("at least one [[checks]] entry is required")
	}

	names := make(map[string]bool, len(cfg.Checks))
	for i, check := range cfg.Checks {
		ref := fmt.Sprintf("checks[%d]", i)
		if names[check.Name] {
			return invalid("duplicate check name %q", check.Name)
		}
		names[check.Name] = true

		if len(check.Paths) == 0 {
			return invalid("%s (%s) must define at least one path", ref, check.Name)
		}
		for _, pattern := range check.Exclude {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				return invalid("%s.exclude has invalid glob %q: %v", ref, pattern, err)
			}
		}
		if len(check.Visibilities) == 0 {
			return invalid("%s (%s) must define at least one visibility rule", ref, check.Name)
		}
		if err := validateVisibilities(ref, check.Visibilities); err != nil {
			return err
		}
	}
	return nil
}

func validateVisibilities(checkRef string, rules []Visibility) error {
	for j, v := range rules {
		ref := fmt.Sprintf("%s.visibilities[%d]", checkRef, j)
		if v.Annotation == "" {
			return invalid("%s.annotation must not be empty", ref)
		}
		if _, err := AnnotationDescriptor(v.Annotation); err != nil {
			return invalid("%s.annotation %q: %v", ref, v.Annotation, err)
		}
		switch v.Intent {
		case IntentPrivate, IntentDefault, IntentProtected:
		default:
			return invalid("%s.intent must be one of: private, default, protected; got %q", ref, v.Intent)
		}
		seen := make(map[string]bool, len(v.Exceptions))
		for _, name := range v.Exceptions {
			key := element.QualifiedName(name)
			if seen[key] {
				return invalid("%s.exceptions lists %q more than once", ref, name)
			}
			seen[key] = true
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case FormatText, FormatMarkdown, FormatSARIF:
		return nil
	default:
		return invalid("output.format must be one of: text, markdown, sarif; got %q", cfg.Output.Format)
	}
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return invalid("db.path must not be empty when db.enabled=true")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Enabled && cfg.Observability.Address == "" {
		return invalid("observability.address must not be empty when observability.enabled=true")
	}
	return nil
}

// Validate runs every validator and collects all failures, unlike Load which
// stops at the first.
func Validate(cfg *Config) []error {
	var errs []error
	for _, fn := range []func(*Config) error{
		validateVersion,
		validateChecks,
		validateOutput,
		validateDatabase,
		validateWatch,
		validateObservability,
	} {
		if err := fn(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
