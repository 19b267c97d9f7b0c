package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// ListVersionsQuery asks for the full revision history of a document,
// superseded revisions included, ascending by version.
type ListVersionsQuery struct {
	DocumentID string
}

type ListVersionsQueryHandler struct {
	store ports.QuoteStore
}

func NewListVersionsQueryHandler(store ports.QuoteStore) *ListVersionsQueryHandler {
	return &ListVersionsQueryHandler{store: store}
}

func (h *ListVersionsQueryHandler) Handle(ctx context.Context, query ListVersionsQuery) ([]domain.Quote, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	return h.store.ListVersions(ctx, query.DocumentID)
}

func (q ListVersionsQuery) Validate() error {
	if strings.TrimSpace(q.DocumentID) == "" {
		return errors.New("document_id is required")
	}
	return nil
}
