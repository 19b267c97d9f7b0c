package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/quotes/internal/kafka"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/dejobratic/quotes/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishQuoteCreated(ctx context.Context, quoteID, documentID string, version int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishQuoteCreated")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.id", quoteID),
		attribute.String("quote.document_id", documentID),
		attribute.Int64("quote.version", version),
		attribute.String("event.type", "quote.created"),
		attribute.String("topic", "quote.created"),
	)

	start := time.Now()
	err := e.bus.PublishQuoteCreated(ctx, quoteID, documentID, version)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "quote.created", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishQuoteSuperseded(ctx context.Context, documentID string, version int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishQuoteSuperseded")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.document_id", documentID),
		attribute.Int64("quote.version", version),
		attribute.String("event.type", "quote.superseded"),
		attribute.String("topic", "quote.superseded"),
	)

	start := time.Now()
	err := e.bus.PublishQuoteSuperseded(ctx, documentID, version)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "quote.superseded", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
