package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/quotes/internal/quotes/domain"
)

// QuoteStore exposes persistence operations required by the application layer.
// Implementations must enforce the version invariants with the storage
// backend's own atomic primitives: version numbers for a document are
// contiguous from 1 and at most one row per document is active.
type QuoteStore interface {
	// Append writes the next revision for quote.DocumentID. The store assigns
	// Version (previous max + 1) and marks the previously active revision
	// superseded in the same atomic unit. A concurrent append racing on the
	// same document surfaces as ErrVersionConflict; callers may retry.
	Append(ctx context.Context, quote domain.Quote) (*domain.Quote, error)
	// GetLatest returns the active revision for a document.
	GetLatest(ctx context.Context, documentID string) (*domain.Quote, error)
	// Get returns a specific revision, including superseded ones.
	Get(ctx context.Context, documentID string, version int64) (*domain.Quote, error)
	// GetLatestBatch returns the active revision for each requested document
	// in a single pass. Documents without an active revision are omitted.
	GetLatestBatch(ctx context.Context, documentIDs []string) (map[string]domain.Quote, error)
	// ListVersions returns the full revision history of a document, ascending
	// by version.
	ListVersions(ctx context.Context, documentID string) ([]domain.Quote, error)
}

var (
	// ErrNotFound is returned when the requested quote does not exist.
	ErrNotFound = errors.New("quote not found")
	// ErrVersionConflict is returned when a concurrent append raced on the
	// same document and the computed version already exists.
	ErrVersionConflict = errors.New("quote version conflict")
)
