package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// GetQuoteQuery represents a point lookup for a specific revision of a
// document, including superseded ones.
type GetQuoteQuery struct {
	DocumentID string
	Version    int64
}

type GetQuoteQueryHandler struct {
	store ports.QuoteStore
}

func NewGetQuoteQueryHandler(store ports.QuoteStore) *GetQuoteQueryHandler {
	return &GetQuoteQueryHandler{store: store}
}

func (h *GetQuoteQueryHandler) Handle(ctx context.Context, query GetQuoteQuery) (*domain.Quote, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	return h.store.Get(ctx, query.DocumentID, query.Version)
}

func (q GetQuoteQuery) Validate() error {
	if strings.TrimSpace(q.DocumentID) == "" {
		return errors.New("document_id is required")
	}
	if q.Version < 1 {
		return errors.New("version must be positive")
	}
	return nil
}
