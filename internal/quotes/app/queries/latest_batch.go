package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// LatestBatchQuery asks for the active quote of each listed document in one
// pass. Documents without an active quote are absent from the result, not an
// error.
type LatestBatchQuery struct {
	DocumentIDs []string
}

type LatestBatchQueryHandler struct {
	store ports.QuoteStore
}

func NewLatestBatchQueryHandler(store ports.QuoteStore) *LatestBatchQueryHandler {
	return &LatestBatchQueryHandler{store: store}
}

func (h *LatestBatchQueryHandler) Handle(ctx context.Context, query LatestBatchQuery) (map[string]domain.Quote, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	return h.store.GetLatestBatch(ctx, query.dedupe())
}

func (q LatestBatchQuery) Validate() error {
	if len(q.DocumentIDs) == 0 {
		return errors.New("document_ids is required")
	}
	for _, id := range q.DocumentIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("document_ids must not contain empty values")
		}
	}
	return nil
}

func (q LatestBatchQuery) dedupe() []string {
	seen := make(map[string]struct{}, len(q.DocumentIDs))
	ids := make([]string, 0, len(q.DocumentIDs))
	for _, id := range q.DocumentIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
