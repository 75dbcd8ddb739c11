package app

import (
	"context"

	"classvis/internal/core/config"
	"classvis/internal/core/watcher"
	"classvis/internal/shared/util"
)

// Watch runs once, then again after every debounced change to the watched
// class inputs or the configuration file, until ctx is cancelled. Each run's
// outcome is handed to onReport.
func (s *Service) Watch(ctx context.Context, onReport func(Report, error)) error {
	cfg := s.Config()
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, nil, nil, func(paths []string) {
		s.logger.Info("class inputs changed", "files", len(paths))
		notify()
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch(cfg.WatchRoots()); err != nil {
		return err
	}

	if s.configPath != "" {
		cw := config.NewWatcher(s.configPath, func(next *config.Config) {
			s.Reload(next)
			w.SetDebounce(next.Watch.Debounce)
			notify()
		})
		if err := cw.Start(ctx); err != nil {
			s.logger.Warn("config reload disabled", "path", s.configPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	// Bursts of config and class changes collapse into at most one rerun per
	// debounce interval.
	limiter := util.NewLimiter(cfg.Watch.Debounce, 1)
	limiter.Allow()

	report, err := s.Run(ctx)
	onReport(report, err)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			report, err := s.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			onReport(report, err)
		}
	}
}
