package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ClassesParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classvis_classes_parsed_total",
		Help: "Total number of class files parsed, by analysis pass.",
	}, []string{"pass"})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classvis_parse_failures_total",
		Help: "Total number of class files that could not be parsed.",
	})

	AnnotatedElements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "classvis_annotated_elements",
		Help: "Number of annotated elements indexed by the most recent run of a rule.",
	}, []string{"annotation"})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classvis_findings_total",
		Help: "Total number of findings recorded, by kind.",
	}, []string{"kind"})

	SuppressionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classvis_suppressions_total",
		Help: "Total number of violations suppressed by an exception entry.",
	})

	RuleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classvis_rule_seconds",
		Help:    "Time spent analyzing one visibility rule, both passes included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"annotation"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classvis_runs_total",
		Help: "Total number of runs, by outcome (pass, fail, error).",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classvis_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
