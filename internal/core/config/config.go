package config

import (
	"strconv"
	"strings"
	"time"
)

// DefaultFile is looked up in the working directory when no -config is given.
const DefaultFile = "classvis.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Checks        []Check       `toml:"checks"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
}

// Check is one group of class inputs with the visibility rules applied to it.
type Check struct {
	Name         string       `toml:"name"`
	Paths        []string     `toml:"paths"`
	Exclude      []string     `toml:"exclude"`
	Visibilities []Visibility `toml:"visibilities"`
}

// Visibility binds a marker annotation to an intent and its allow-list.
type Visibility struct {
	Annotation string   `toml:"annotation"`
	Intent     string   `toml:"intent"`
	Exceptions []string `toml:"exceptions"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// Output formats understood by the report generators.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatSARIF    = "sarif"
)

// Intents accepted in configuration. Only private is enforced at run time.
const (
	IntentPrivate   = "private"
	IntentDefault   = "default"
	IntentProtected = "protected"
)

// Default returns a configuration with every default applied and no checks.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Paths.ProjectRoot) == "" {
		cfg.Paths.ProjectRoot = "."
	}
	for i := range cfg.Checks {
		check := &cfg.Checks[i]
		if strings.TrimSpace(check.Name) == "" {
			check.Name = defaultCheckName(i)
		}
		for j := range check.Visibilities {
			if strings.TrimSpace(check.Visibilities[j].Intent) == "" {
				check.Visibilities[j].Intent = IntentPrivate
			}
		}
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = FormatText
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/classvis-history.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}
	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}

func defaultCheckName(i int) string {
	if i == 0 {
		return "main"
	}
	return "check-" + strconv.Itoa(i+1)
}

func normalize(cfg *Config) {
	cfg.Paths.ProjectRoot = strings.TrimSpace(cfg.Paths.ProjectRoot)
	for i := range cfg.Checks {
		check := &cfg.Checks[i]
		check.Name = strings.TrimSpace(check.Name)
		check.Paths = trimAll(check.Paths)
		check.Exclude = trimAll(check.Exclude)
		for j := range check.Visibilities {
			v := &check.Visibilities[j]
			v.Annotation = strings.TrimSpace(v.Annotation)
			v.Intent = strings.ToLower(strings.TrimSpace(v.Intent))
			v.Exceptions = trimAll(v.Exceptions)
		}
	}
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

// trimAll trims every entry and drops empty ones.
func trimAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
