package worker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("reasonledger.worker")

var (
	analysisDuration    metric.Float64Histogram
	contradictionsTotal metric.Int64Counter
	driftVerdictsTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisDuration, err = meter.Float64Histogram(
			"ledger_analysis_duration_seconds",
			metric.WithDescription("Time spent in drift and consistency analysis"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		contradictionsTotal, err = meter.Int64Counter(
			"ledger_contradictions_total",
			metric.WithDescription("Contradictions detected, by type"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		driftVerdictsTotal, err = meter.Int64Counter(
			"ledger_drift_verdicts_total",
			metric.WithDescription("Drift analyses, by pattern and resolution"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordAnalysis(analyzer string, d time.Duration) {
	if initMetrics() != nil {
		return
	}
	analysisDuration.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.String("analyzer", analyzer)))
}

func recordContradiction(kind string) {
	if initMetrics() != nil {
		return
	}
	contradictionsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("type", kind)))
}

func recordDriftVerdict(pattern string, unresolved bool) {
	if initMetrics() != nil {
		return
	}
	driftVerdictsTotal.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("pattern", pattern),
			attribute.Bool("unresolved", unresolved),
		))
}
