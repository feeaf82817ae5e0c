package ledger

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("reasonledger.ledger")

var (
	insertsTotal   metric.Int64Counter
	removalsTotal  metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
	sweepDuration  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		insertsTotal, err = meter.Int64Counter(
			"ledger_thought_inserts_total",
			metric.WithDescription("Thought inserts by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		removalsTotal, err = meter.Int64Counter(
			"ledger_session_removals_total",
			metric.WithDescription("Sessions removed by reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		activeSessions, err = meter.Int64UpDownCounter(
			"ledger_sessions_active",
			metric.WithDescription("Sessions currently held"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sweepDuration, err = meter.Float64Histogram(
			"ledger_sweep_duration_seconds",
			metric.WithDescription("TTL sweep duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordInsert(outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	insertsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordSessionDelta(n int64) {
	if err := initMetrics(); err != nil {
		return
	}
	activeSessions.Add(context.Background(), n)
}

func recordRemoval(reason RemovalReason) {
	if err := initMetrics(); err != nil {
		return
	}
	ctx := context.Background()
	removalsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
	activeSessions.Add(ctx, -1)
}

func recordSweep(d time.Duration, removed int) {
	if err := initMetrics(); err != nil {
		return
	}
	sweepDuration.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.Bool("removed", removed > 0)))
}
