package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CLASSVIS_[SECTION]_[KEY] (e.g., CLASSVIS_OUTPUT_FORMAT).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "CLASSVIS_PATHS_PROJECT_ROOT")

	// Output
	setEnvString(&cfg.Output.Format, "CLASSVIS_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "CLASSVIS_OUTPUT_PATH")

	// Database
	setEnvBool(&cfg.DB.Enabled, "CLASSVIS_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "CLASSVIS_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "CLASSVIS_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "CLASSVIS_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "CLASSVIS_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "CLASSVIS_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CLASSVIS_OBSERVABILITY_OTLP_ENDPOINT")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Info("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Info("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
