package visibility

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainerrors "classvis/internal/core/errors"
	"classvis/internal/core/ports"
	"classvis/internal/engine/classfile"
	"classvis/internal/engine/element"
	"classvis/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Rule is one marker annotation enforced over one check's inputs.
type Rule struct {
	Check      string
	Annotation string // qualified name, used in messages
	Descriptor string // binary descriptor, e.g. Lcom/acme/Private;
	Intent     Intent
	Exceptions []string
}

// Stats summarizes one rule's analysis.
type Stats struct {
	Classes          int
	Annotated        int
	Violations       int
	Suppressed       int
	UnusedExceptions int
	Duration         time.Duration
}

// ruleState is everything scoped to a single rule: the annotated set and the
// allow-list are never shared across rules.
type ruleState struct {
	check      string
	annotation string
	intent     Intent
	annotated  *element.Set
	exceptions *Exceptions
	aggregator *Aggregator
	stats      Stats
}

// Tester analyzes one rule. Create a fresh Tester per rule.
type Tester struct {
	rule  Rule
	state *ruleState
}

func NewTester(rule Rule, aggregator *Aggregator) *Tester {
	return &Tester{
		rule: rule,
		state: &ruleState{
			check:      rule.Check,
			annotation: rule.Annotation,
			intent:     rule.Intent,
			annotated:  element.NewSet(),
			exceptions: NewExceptions(rule.Exceptions),
			aggregator: aggregator,
		},
	}
}

// Annotated exposes the elements found by the first pass.
func (t *Tester) Annotated() *element.Set {
	return t.state.annotated
}

// Analyze indexes every binary, then scans every binary, then reports unused
// exceptions. Parse failures and unsupported intents abort immediately;
// violations are recorded in the aggregator and never stop the scan.
func (t *Tester) Analyze(ctx context.Context, binaries []ports.ClassBinary) (Stats, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "visibility.Tester.Analyze", trace.WithAttributes(
		attribute.String("check", t.rule.Check),
		attribute.String("annotation", t.rule.Annotation),
		attribute.Int("binaries", len(binaries)),
	))
	defer span.End()

	if err := CheckIntent(t.rule.Intent); err != nil {
		return Stats{}, domainerrors.AddContext(err, domainerrors.CtxAnnotation, t.rule.Annotation)
	}
	if strings.TrimSpace(t.rule.Descriptor) == "" {
		return Stats{}, domainerrors.Newf(domainerrors.CodeValidationError,
			"rule for %q has no annotation descriptor", t.rule.Annotation)
	}

	err := sweep(ctx, "index", binaries, func() classfile.Visitor {
		return newIndexer(t.rule.Descriptor, t.state.annotated)
	})
	if err != nil {
		return Stats{}, err
	}
	t.state.stats.Annotated = t.state.annotated.Len()
	observability.AnnotatedElements.WithLabelValues(t.rule.Annotation).Set(float64(t.state.stats.Annotated))
	slog.Debug("indexed annotated elements",
		"check", t.rule.Check,
		"annotation", t.rule.Annotation,
		"annotated", t.state.stats.Annotated,
	)

	err = sweep(ctx, "scan", binaries, func() classfile.Visitor {
		return newScanner(t.state)
	})
	if err != nil {
		return Stats{}, err
	}

	for _, name := range t.state.exceptions.Unused() {
		t.state.aggregator.AddUnusedException(t.rule.Check, t.rule.Annotation, name)
		t.state.stats.UnusedExceptions++
	}

	t.state.stats.Classes = len(binaries)
	t.state.stats.Duration = time.Since(start)
	observability.RuleDuration.WithLabelValues(t.rule.Annotation).Observe(t.state.stats.Duration.Seconds())
	observability.FindingsTotal.WithLabelValues(string(FindingViolation)).Add(float64(t.state.stats.Violations))
	observability.FindingsTotal.WithLabelValues(string(FindingUnusedException)).Add(float64(t.state.stats.UnusedExceptions))
	observability.SuppressionsTotal.Add(float64(t.state.stats.Suppressed))
	span.SetAttributes(
		attribute.Int("violations", t.state.stats.Violations),
		attribute.Int("unused_exceptions", t.state.stats.UnusedExceptions),
	)
	return t.state.stats, nil
}

// finisher is implemented by visitors that defer an error to the end of a class.
type finisher interface {
	done() error
}

func sweep(ctx context.Context, pass string, binaries []ports.ClassBinary, newVisitor func() classfile.Visitor) error {
	_, span := observability.Tracer.Start(ctx, "visibility.sweep."+pass)
	defer span.End()

	for _, bin := range binaries {
		v := newVisitor()
		if err := parseBinary(bin, v); err != nil {
			observability.ParseFailuresTotal.Inc()
			span.RecordError(err)
			return err
		}
		observability.ClassesParsedTotal.WithLabelValues(pass).Inc()
		if f, ok := v.(finisher); ok {
			if err := f.done(); err != nil {
				return domainerrors.AddContext(err, domainerrors.CtxPath, bin.Name)
			}
		}
	}
	return nil
}

// parseBinary scopes the binary's reader to a single parse.
func parseBinary(bin ports.ClassBinary, v classfile.Visitor) error {
	if bin.Open == nil {
		return domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeParseFailure, "class binary has no content"),
			domainerrors.CtxPath, bin.Name)
	}
	rc, err := bin.Open()
	if err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeParseFailure, "open class binary"),
			domainerrors.CtxPath, bin.Name)
	}
	defer rc.Close()

	slog.Debug("parsing class binary", "path", bin.Name)
	if err := classfile.Read(rc, v); err != nil {
		return domainerrors.AddContext(err, domainerrors.CtxPath, bin.Name)
	}
	return nil
}
