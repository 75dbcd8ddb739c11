package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"classvis/internal/core/app"
	"classvis/internal/core/config"
	"classvis/internal/core/ports"
	"classvis/internal/data/history"
	"classvis/internal/shared/observability"
	"classvis/internal/shared/util"
	"classvis/internal/shared/version"
	"classvis/internal/ui/report/formats"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitBadUsage = 2
)

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return exitBadUsage
	}
	if len(opts.args) > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(opts.args, " "))
		return exitBadUsage
	}
	if opts.history < 0 {
		fmt.Fprintln(stderr, "-history must not be negative")
		return exitBadUsage
	}
	if !validFormat(opts.format) {
		fmt.Fprintf(stderr, "-format must be one of %s, %s or %s, got %q\n",
			config.FormatText, config.FormatMarkdown, config.FormatSARIF, opts.format)
		return exitBadUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "classvis v%s\n", version.Version)
		return exitOK
	}

	configureLogging(opts.verbose, stderr)

	cfg, err := loadConfig(opts)
	if err != nil {
		slog.Error("failed to load config", "path", opts.configPath, "error", err)
		return exitFailure
	}

	store, err := openHistoryStoreIfEnabled(cfg)
	if err != nil {
		if history.IsCorruptError(err) {
			slog.Error("history database is corrupt; remove it to start a fresh history", "path", cfg.DB.Path, "error", err)
		} else {
			slog.Error("history setup failed", "path", cfg.DB.Path, "error", err)
		}
		return exitFailure
	}
	if store != nil {
		slog.Debug("history enabled", "path", store.Path())
		defer store.Close()
	}

	if opts.history > 0 {
		if store == nil {
			fmt.Fprintln(stderr, "-history requires db.enabled = true")
			return exitFailure
		}
		if err := printHistory(stdout, store, opts.history); err != nil {
			slog.Error("failed to read history", "error", err)
			return exitFailure
		}
		return exitOK
	}

	if cfg.Observability.Enabled {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, version.Version)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			return exitFailure
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	svcOpts := []app.Option{
		app.WithConfigPath(opts.configPath),
		app.WithLogger(slog.Default()),
	}
	if store != nil {
		svcOpts = append(svcOpts, app.WithHistoryStore(store))
	}
	svc, err := app.New(cfg, svcOpts...)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return exitFailure
	}

	if opts.watch {
		return runWatch(ctx, svc, opts, stdout)
	}

	report, err := svc.Run(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		return exitFailure
	}
	if err := emitReport(svc.Config(), opts, report, stdout); err != nil {
		slog.Error("failed to write report", "error", err)
		return exitFailure
	}
	if !report.Passed() {
		return exitFailure
	}
	return exitOK
}

// validFormat accepts an unset flag, which defers to output.format.
func validFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", config.FormatText, config.FormatMarkdown, config.FormatSARIF:
		return true
	}
	return false
}

func loadConfig(opts cliOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func openHistoryStoreIfEnabled(cfg *config.Config) (*history.Store, error) {
	if !cfg.DB.Enabled {
		return nil, nil
	}
	return history.Open(cfg.DB.Path, cfg.DB.BusyTimeout)
}

func runWatch(ctx context.Context, svc *app.Service, opts cliOptions, stdout io.Writer) int {
	cfg := svc.Config()

	var server *observability.Server
	if cfg.Observability.Enabled {
		server = observability.NewServer(cfg.Observability.Address)
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "addr", cfg.Observability.Address, "error", err)
			return exitFailure
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	err := svc.Watch(ctx, func(report app.Report, runErr error) {
		if runErr != nil {
			slog.Error("run failed", "error", runErr)
			return
		}
		if server != nil {
			server.RecordRun(report.RunID, report.StartedAt, report.Passed())
		}
		if err := emitReport(svc.Config(), opts, report, stdout); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	})
	if err != nil {
		slog.Error("watch failed", "error", err)
		return exitFailure
	}
	return exitOK
}

// emitReport renders the report in the configured format. Flags win over the
// config file.
func emitReport(cfg *config.Config, opts cliOptions, report app.Report, stdout io.Writer) error {
	format := cfg.Output.Format
	if opts.format != "" {
		format = opts.format
	}
	path := cfg.Output.Path
	if opts.output != "" {
		path = opts.output
	}

	out, err := formats.Generate(format, reportData(report))
	if err != nil {
		return err
	}
	if path == "" {
		_, err := stdout.Write(out)
		return err
	}
	if err := util.WriteFileWithDirs(path, out, 0o644); err != nil {
		return err
	}
	slog.Info("report written", "path", path, "format", format, "findings", len(report.Findings))
	return nil
}

func reportData(report app.Report) formats.ReportData {
	return formats.ReportData{
		RunID:       report.RunID,
		GeneratedAt: report.StartedAt,
		Duration:    report.Duration,
		Checks:      report.Totals.Checks,
		Rules:       report.Totals.Rules,
		Classes:     report.Totals.Classes,
		Suppressed:  report.Totals.Suppressed,
		Findings:    report.Findings,
	}
}

func printHistory(w io.Writer, store ports.HistoryStore, limit int) error {
	runs, err := store.LoadRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "History: no runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "History: %d most recent runs\n", len(runs))
	for _, run := range runs {
		fmt.Fprintf(w, "  %s %s %s classes=%d violations=%d unused_exceptions=%d suppressed=%d duration=%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.ID,
			run.Status,
			run.Classes,
			run.Violations,
			run.UnusedExceptions,
			run.Suppressed,
			run.Duration.Round(time.Millisecond),
		)
	}
	return nil
}

func configureLogging(verbose bool, output io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
