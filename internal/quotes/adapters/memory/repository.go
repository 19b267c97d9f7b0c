package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

// Repository provides an in-memory store useful for local development and
// tests. The mutex stands in for the database's atomic primitives, so the
// version invariants hold for concurrent callers within one process.
type Repository struct {
	mu        sync.RWMutex
	revisions map[string][]domain.Quote
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{revisions: make(map[string][]domain.Quote)}
}

// Append assigns the next version for the quote's document, supersedes the
// previous active revision, and stores the new one.
func (r *Repository) Append(_ context.Context, quote domain.Quote) (*domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.revisions[quote.DocumentID]
	quote.Version = int64(len(history)) + 1
	quote.Status = domain.StatusActive

	for i := range history {
		if history[i].Status == domain.StatusActive {
			history[i].Status = domain.StatusSuperseded
		}
	}

	r.revisions[quote.DocumentID] = append(history, quote)
	return &quote, nil
}

// GetLatest fetches the active revision for a document.
func (r *Repository) GetLatest(_ context.Context, documentID string) (*domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.revisions[documentID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Status == domain.StatusActive {
			quote := history[i]
			return &quote, nil
		}
	}
	return nil, ports.ErrNotFound
}

// Get fetches a specific revision, superseded ones included.
func (r *Repository) Get(_ context.Context, documentID string, version int64) (*domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.revisions[documentID]
	if version < 1 || version > int64(len(history)) {
		return nil, ports.ErrNotFound
	}
	quote := history[version-1]
	return &quote, nil
}

// GetLatestBatch returns the active revision per requested document.
// Documents with no active revision are omitted.
func (r *Repository) GetLatestBatch(_ context.Context, documentIDs []string) (map[string]domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]domain.Quote, len(documentIDs))
	for _, documentID := range documentIDs {
		history := r.revisions[documentID]
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Status == domain.StatusActive {
				result[documentID] = history[i]
				break
			}
		}
	}
	return result, nil
}

// ListVersions returns the document's history ascending by version.
func (r *Repository) ListVersions(_ context.Context, documentID string) ([]domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.revisions[documentID]
	quotes := make([]domain.Quote, len(history))
	copy(quotes, history)
	return quotes, nil
}
