// Package app runs the configured visibility checks against compiled classes.
package app

import (
	"log/slog"
	"sync"

	"classvis/internal/core/config"
	"classvis/internal/core/ports"
	"classvis/internal/data/classtree"
)

// Service owns one configuration and the adapters a run needs.
type Service struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string

	source  ports.ClassSource
	history ports.HistoryStore
	logger  *slog.Logger
}

type Option func(*Service)

// WithClassSource replaces the file system class tree.
func WithClassSource(source ports.ClassSource) Option {
	return func(s *Service) { s.source = source }
}

// WithHistoryStore saves every completed run.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(s *Service) { s.history = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithConfigPath records where the configuration came from. Watch reloads it
// on change and history stores it with each run.
func WithConfigPath(path string) Option {
	return func(s *Service) { s.configPath = path }
}

func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = classtree.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Config returns the configuration the next run will use.
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload swaps the configuration used by subsequent runs.
func (s *Service) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("configuration reloaded", "checks", len(cfg.Checks))
}

