package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/quotes/internal/database"
	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/dejobratic/quotes/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableRepository struct {
	store   ports.QuoteStore
	metrics *database.Metrics
}

func NewObservableRepository(store ports.QuoteStore, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		store:   store,
		metrics: metrics,
	}
}

func (r *ObservableRepository) Append(ctx context.Context, quote domain.Quote) (*domain.Quote, error) {
	ctx, span := telemetry.StartSpan(ctx, "QuoteStore.Append")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.document_id", quote.DocumentID),
		attribute.String("operation", "append"),
	)

	start := time.Now()
	created, err := r.store.Append(ctx, quote)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "append_quote", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int64("quote.version", created.Version))
	telemetry.SetSpanSuccess(span)
	return created, nil
}

func (r *ObservableRepository) GetLatest(ctx context.Context, documentID string) (*domain.Quote, error) {
	ctx, span := telemetry.StartSpan(ctx, "QuoteStore.GetLatest")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.document_id", documentID),
		attribute.String("operation", "get_latest"),
	)

	start := time.Now()
	quote, err := r.store.GetLatest(ctx, documentID)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "get_latest_quote", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return quote, nil
}

func (r *ObservableRepository) Get(ctx context.Context, documentID string, version int64) (*domain.Quote, error) {
	ctx, span := telemetry.StartSpan(ctx, "QuoteStore.Get")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.document_id", documentID),
		attribute.Int64("quote.version", version),
		attribute.String("operation", "get"),
	)

	start := time.Now()
	quote, err := r.store.Get(ctx, documentID, version)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "get_quote", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return quote, nil
}

func (r *ObservableRepository) GetLatestBatch(ctx context.Context, documentIDs []string) (map[string]domain.Quote, error) {
	ctx, span := telemetry.StartSpan(ctx, "QuoteStore.GetLatestBatch")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int("request.count", len(documentIDs)),
		attribute.String("operation", "get_latest_batch"),
	)

	start := time.Now()
	quotes, err := r.store.GetLatestBatch(ctx, documentIDs)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "get_latest_batch", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(quotes)))
	telemetry.SetSpanSuccess(span)
	return quotes, nil
}

func (r *ObservableRepository) ListVersions(ctx context.Context, documentID string) ([]domain.Quote, error) {
	ctx, span := telemetry.StartSpan(ctx, "QuoteStore.ListVersions")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("quote.document_id", documentID),
		attribute.String("operation", "list_versions"),
	)

	start := time.Now()
	quotes, err := r.store.ListVersions(ctx, documentID)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "list_quote_versions", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(quotes)))
	telemetry.SetSpanSuccess(span)
	return quotes, nil
}
