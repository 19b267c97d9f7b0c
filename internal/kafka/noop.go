package kafka

import (
	"context"
	"log/slog"
)

// NoopEventBus logs events without sending them to Kafka. Useful for local dev before wiring Kafka.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishQuoteCreated(_ context.Context, quoteID, documentID string, version int64) error {
	slog.Debug("event::quote_created", "quote_id", quoteID, "document_id", documentID, "version", version)
	return nil
}

func (n *NoopEventBus) PublishQuoteSuperseded(_ context.Context, documentID string, version int64) error {
	slog.Debug("event::quote_superseded", "document_id", documentID, "version", version)
	return nil
}
