package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	quotesCreatedTotal    metric.Int64Counter
	quoteCreationDuration metric.Float64Histogram
	idempotentReplays     metric.Int64Counter
	keyConflicts          metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.quotesCreatedTotal, err = meter.Int64Counter(
		"quotes_created_total",
		metric.WithDescription("Total number of quote creation requests"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create quotes_created_total counter: %w", err)
	}

	m.quoteCreationDuration, err = meter.Float64Histogram(
		"quote_creation_duration_seconds",
		metric.WithDescription("Duration of quote creation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create quote_creation_duration histogram: %w", err)
	}

	m.idempotentReplays, err = meter.Int64Counter(
		"idempotent_replays_total",
		metric.WithDescription("Total number of requests replayed from the idempotency ledger"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotent_replays_total counter: %w", err)
	}

	m.keyConflicts, err = meter.Int64Counter(
		"idempotency_key_conflicts_total",
		metric.WithDescription("Total number of idempotency keys reused with a different payload"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_key_conflicts_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuoteCreated(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.quotesCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordQuoteCreationDuration(ctx context.Context, durationSeconds float64) {
	m.quoteCreationDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordReplay(ctx context.Context) {
	m.idempotentReplays.Add(ctx, 1)
}

func (m *Metrics) RecordKeyConflict(ctx context.Context) {
	m.keyConflicts.Add(ctx, 1)
}
