package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// GetLatestQuery represents a request to retrieve the active quote for a document.
type GetLatestQuery struct {
	DocumentID string
}

// GetLatestQueryHandler executes GetLatestQuery and returns the quote if found.
type GetLatestQueryHandler struct {
	store ports.QuoteStore
}

// NewGetLatestQueryHandler constructs a GetLatestQueryHandler.
func NewGetLatestQueryHandler(store ports.QuoteStore) *GetLatestQueryHandler {
	return &GetLatestQueryHandler{store: store}
}

// Handle executes the query and retrieves the latest quote.
func (h *GetLatestQueryHandler) Handle(ctx context.Context, query GetLatestQuery) (*domain.Quote, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	return h.store.GetLatest(ctx, query.DocumentID)
}

// Validate ensures the query has valid parameters.
func (q GetLatestQuery) Validate() error {
	if strings.TrimSpace(q.DocumentID) == "" {
		return errors.New("document_id is required")
	}
	return nil
}
