package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/quotes/internal/quotes/metrics"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/dejobratic/quotes/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CreateQuoteCommand) (*CreateQuoteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateQuoteCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordQuoteCreationDuration(ctx, duration)
		o.metrics.RecordQuoteCreated(ctx, success)
	}()

	o.logger.InfoContext(ctx, "creating quote",
		"document_id", cmd.DocumentID,
		"idempotency_key", cmd.IdempotencyKey,
	)

	result, err := o.handler.Handle(ctx, cmd)

	if err != nil && result == nil {
		if errors.Is(err, ports.ErrKeyReuse) {
			o.metrics.RecordKeyConflict(ctx)
		}
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to create quote",
			"error", err,
			"document_id", cmd.DocumentID,
			"idempotency_key", cmd.IdempotencyKey,
		)
		return nil, err
	}

	if err != nil {
		// The quote was written; only bookkeeping after the append failed.
		// The caller still gets the created quote.
		o.logger.WarnContext(ctx, "quote created with degraded bookkeeping",
			"error", err,
			"quote_id", result.Quote.ID,
			"document_id", result.Quote.DocumentID,
		)
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.id", result.Quote.ID),
		attribute.String("quote.document_id", result.Quote.DocumentID),
		attribute.Int64("quote.version", result.Quote.Version),
		attribute.Bool("quote.replayed", result.Replayed),
	)

	if result.Replayed {
		o.metrics.RecordReplay(ctx)
		o.logger.InfoContext(ctx, "replayed stored quote for idempotency key",
			"quote_id", result.Quote.ID,
			"idempotency_key", cmd.IdempotencyKey,
		)
	} else {
		o.logger.InfoContext(ctx, "quote created successfully",
			"quote_id", result.Quote.ID,
			"document_id", result.Quote.DocumentID,
			"version", result.Quote.Version,
		)
	}

	success = true
	telemetry.SetSpanSuccess(span)

	return result, nil
}
