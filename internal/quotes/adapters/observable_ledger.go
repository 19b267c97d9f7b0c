package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/quotes/internal/database"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/dejobratic/quotes/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableLedger struct {
	ledger  ports.IdempotencyLedger
	metrics *database.Metrics
}

func NewObservableLedger(ledger ports.IdempotencyLedger, metrics *database.Metrics) *ObservableLedger {
	return &ObservableLedger{
		ledger:  ledger,
		metrics: metrics,
	}
}

func (l *ObservableLedger) Reserve(ctx context.Context, key, fingerprint string) (ports.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "IdempotencyLedger.Reserve")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("idempotency.key", key),
		attribute.String("operation", "reserve"),
	)

	start := time.Now()
	reservation, err := l.ledger.Reserve(ctx, key, fingerprint)
	duration := time.Since(start).Seconds()

	l.metrics.RecordQuery(ctx, "reserve_idempotency_key", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return ports.Reservation{}, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("idempotency.outcome", string(reservation.Outcome)))
	telemetry.SetSpanSuccess(span)
	return reservation, nil
}

func (l *ObservableLedger) Complete(ctx context.Context, key string, result ports.StoredResult) error {
	ctx, span := telemetry.StartSpan(ctx, "IdempotencyLedger.Complete")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("idempotency.key", key),
		attribute.String("operation", "complete"),
	)

	start := time.Now()
	err := l.ledger.Complete(ctx, key, result)
	duration := time.Since(start).Seconds()

	l.metrics.RecordQuery(ctx, "complete_idempotency_key", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (l *ObservableLedger) Abort(ctx context.Context, key string) error {
	ctx, span := telemetry.StartSpan(ctx, "IdempotencyLedger.Abort")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("idempotency.key", key),
		attribute.String("operation", "abort"),
	)

	start := time.Now()
	err := l.ledger.Abort(ctx, key)
	duration := time.Since(start).Seconds()

	l.metrics.RecordQuery(ctx, "abort_idempotency_key", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
