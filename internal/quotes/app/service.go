package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/quotes/internal/quotes/app/commands"
	"github.com/dejobratic/quotes/internal/quotes/app/queries"
	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/metrics"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// Service bundles use cases for handling quotes via the API.
type Service struct {
	createQuoteHandler  commands.CommandHandler
	getLatestHandler    *queries.GetLatestQueryHandler
	getQuoteHandler     *queries.GetQuoteQueryHandler
	latestBatchHandler  *queries.LatestBatchQueryHandler
	listVersionsHandler *queries.ListVersionsQueryHandler
}

// NewService wires required dependencies.
func NewService(
	store ports.QuoteStore,
	ledger ports.IdempotencyLedger,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	coreHandler := commands.NewCreateQuoteCommandHandler(store, ledger, events)
	observableHandler := commands.NewObservableCommandHandler(coreHandler, logger, metrics)

	return &Service{
		createQuoteHandler:  observableHandler,
		getLatestHandler:    queries.NewGetLatestQueryHandler(store),
		getQuoteHandler:     queries.NewGetQuoteQueryHandler(store),
		latestBatchHandler:  queries.NewLatestBatchQueryHandler(store),
		listVersionsHandler: queries.NewListVersionsQueryHandler(store),
	}
}

// CreateQuoteInput captures payload for creating a quote.
type CreateQuoteInput struct {
	DocumentID string   `json:"document_id"`
	Content    string   `json:"content"`
	Author     string   `json:"author"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category"`
	Language   string   `json:"language"`
}

// CreateQuote orchestrates idempotent quote creation.
func (s *Service) CreateQuote(ctx context.Context, input CreateQuoteInput, idempotencyKey string) (*commands.CreateQuoteResult, error) {
	cmd := commands.CreateQuoteCommand{
		DocumentID:     input.DocumentID,
		Content:        input.Content,
		Author:         input.Author,
		Tags:           input.Tags,
		Category:       input.Category,
		Language:       input.Language,
		IdempotencyKey: idempotencyKey,
	}
	return s.createQuoteHandler.Handle(ctx, cmd)
}

// GetLatest retrieves the active quote for a document.
func (s *Service) GetLatest(ctx context.Context, documentID string) (*domain.Quote, error) {
	return s.getLatestHandler.Handle(ctx, queries.GetLatestQuery{DocumentID: documentID})
}

// GetQuote retrieves a specific revision of a document.
func (s *Service) GetQuote(ctx context.Context, documentID string, version int64) (*domain.Quote, error) {
	return s.getQuoteHandler.Handle(ctx, queries.GetQuoteQuery{DocumentID: documentID, Version: version})
}

// GetLatestBatch retrieves the active quote for each document in one pass.
func (s *Service) GetLatestBatch(ctx context.Context, documentIDs []string) (map[string]domain.Quote, error) {
	return s.latestBatchHandler.Handle(ctx, queries.LatestBatchQuery{DocumentIDs: documentIDs})
}

// ListVersions retrieves a document's full revision history.
func (s *Service) ListVersions(ctx context.Context, documentID string) ([]domain.Quote, error) {
	return s.listVersionsHandler.Handle(ctx, queries.ListVersionsQuery{DocumentID: documentID})
}
