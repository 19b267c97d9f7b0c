package ports

import "context"

// EventBus defines the contract for publishing quote lifecycle events.
type EventBus interface {
	PublishQuoteCreated(ctx context.Context, quoteID, documentID string, version int64) error
	PublishQuoteSuperseded(ctx context.Context, documentID string, version int64) error
}
