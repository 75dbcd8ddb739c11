package app

import (
	"context"
	"time"

	"classvis/internal/core/config"
	domainerrors "classvis/internal/core/errors"
	"classvis/internal/engine/visibility"
	"classvis/internal/shared/observability"
	"classvis/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errConfigRequired = domainerrors.New(domainerrors.CodeValidationError, "config is required")

// Run analyzes every check and every rule in declaration order. Findings are
// collected into the report; a fatal error discards the partial report.
func (s *Service) Run(ctx context.Context) (Report, error) {
	cfg := s.Config()
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	ctx, span := observability.Tracer.Start(ctx, "app.Service.Run", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("checks", len(cfg.Checks)),
	))
	defer span.End()

	aggregator := visibility.NewAggregator()
	for _, check := range cfg.Checks {
		result, err := s.runCheck(ctx, check, aggregator)
		if err != nil {
			observability.RunsTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "run failed")
			s.logger.Error("run aborted", "check", check.Name, "error", err)
			return Report{}, domainerrors.AddContext(err, domainerrors.CtxOperation, "check "+check.Name)
		}
		report.Checks = append(report.Checks, result)
		report.Totals.Checks++
		for _, rule := range result.Rules {
			report.Totals.Rules++
			report.Totals.Classes += rule.Stats.Classes
			report.Totals.Annotated += rule.Stats.Annotated
			report.Totals.Violations += rule.Stats.Violations
			report.Totals.Suppressed += rule.Stats.Suppressed
			report.Totals.UnusedExceptions += rule.Stats.UnusedExceptions
		}
	}

	report.Findings = aggregator.Findings()
	report.err = aggregator.Err()
	report.Duration = time.Since(report.StartedAt)

	outcome := "pass"
	if !report.Passed() {
		outcome = "fail"
	}
	observability.RunsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.Int("findings", len(report.Findings)))

	s.logger.Info("run complete",
		"run_id", report.RunID,
		"checks", report.Totals.Checks,
		"classes", report.Totals.Classes,
		"violations", report.Totals.Violations,
		"unused_exceptions", report.Totals.UnusedExceptions,
		"duration", report.Duration,
		"heap_mb", util.GetHeapAllocMB(),
	)

	if s.history != nil {
		if err := s.history.SaveRun(report.historyRun(s.configPath)); err != nil {
			s.logger.Warn("failed to save run history", "run_id", report.RunID, "error", err)
		}
	}
	return report, nil
}

func (s *Service) runCheck(ctx context.Context, check config.Check, aggregator *visibility.Aggregator) (CheckResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Service.runCheck", trace.WithAttributes(
		attribute.String("check", check.Name),
	))
	defer span.End()

	result := CheckResult{Name: check.Name}
	for _, v := range check.Visibilities {
		if err := ctx.Err(); err != nil {
			return CheckResult{}, err
		}
		rule, err := ruleFromConfig(check.Name, v)
		if err != nil {
			return CheckResult{}, err
		}
		// Unsupported intents fail before any class path is touched.
		if err := visibility.CheckIntent(rule.Intent); err != nil {
			return CheckResult{}, domainerrors.AddContext(err, domainerrors.CtxAnnotation, rule.Annotation)
		}

		binaries, err := s.source.Resolve(ctx, check.Paths, check.Exclude)
		if err != nil {
			return CheckResult{}, err
		}
		stats, err := visibility.NewTester(rule, aggregator).Analyze(ctx, binaries)
		if err != nil {
			return CheckResult{}, err
		}

		s.logger.Info("rule complete",
			"check", check.Name,
			"annotation", rule.Annotation,
			"classes", stats.Classes,
			"annotated", stats.Annotated,
			"violations", stats.Violations,
			"unused_exceptions", stats.UnusedExceptions,
		)
		result.Rules = append(result.Rules, RuleResult{
			Annotation: rule.Annotation,
			Intent:     rule.Intent.String(),
			Stats:      stats,
		})
	}
	return result, nil
}

func ruleFromConfig(check string, v config.Visibility) (visibility.Rule, error) {
	intent, err := visibility.ParseIntent(v.Intent)
	if err != nil {
		return visibility.Rule{}, domainerrors.AddContext(err, domainerrors.CtxAnnotation, v.Annotation)
	}
	descriptor, err := config.AnnotationDescriptor(v.Annotation)
	if err != nil {
		return visibility.Rule{}, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid annotation"),
			domainerrors.CtxAnnotation, v.Annotation)
	}
	return visibility.Rule{
		Check:      check,
		Annotation: config.AnnotationName(v.Annotation),
		Descriptor: descriptor,
		Intent:     intent,
		Exceptions: v.Exceptions,
	}, nil
}
