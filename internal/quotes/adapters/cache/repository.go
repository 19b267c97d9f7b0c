package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/redis/go-redis/v9"
)

// Repository is a read-through Redis cache in front of a QuoteStore. Cache
// failures never fail the request: reads fall through to the store and
// writes are best-effort.
//
// A latest entry is only ever replaced by a strictly newer version, checked
// under WATCH, so a slow reader cannot re-populate the cache with a revision
// an append already superseded. Point entries are cached only once a
// revision is superseded; superseded rows are immutable and cannot go stale.
type Repository struct {
	store  ports.QuoteStore
	client *redis.Client
	ttl    time.Duration
}

func NewRepository(store ports.QuoteStore, client *redis.Client, ttl time.Duration) *Repository {
	return &Repository{store: store, client: client, ttl: ttl}
}

// Append writes through to the store, advances the document's latest entry,
// and evicts the superseded revision's point entry, whose cached copy still
// claims to be active.
func (r *Repository) Append(ctx context.Context, quote domain.Quote) (*domain.Quote, error) {
	created, err := r.store.Append(ctx, quote)
	if err != nil {
		return nil, err
	}

	r.putLatest(ctx, created)
	if created.Version > 1 {
		_ = r.client.Del(ctx, versionKey(created.DocumentID, created.Version-1)).Err()
	}

	return created, nil
}

func (r *Repository) GetLatest(ctx context.Context, documentID string) (*domain.Quote, error) {
	if quote := r.get(ctx, latestKey(documentID)); quote != nil {
		return quote, nil
	}

	quote, err := r.store.GetLatest(ctx, documentID)
	if err != nil {
		return nil, err
	}

	r.putLatest(ctx, quote)
	return quote, nil
}

func (r *Repository) Get(ctx context.Context, documentID string, version int64) (*domain.Quote, error) {
	if quote := r.get(ctx, versionKey(documentID, version)); quote != nil {
		return quote, nil
	}

	quote, err := r.store.Get(ctx, documentID, version)
	if err != nil {
		return nil, err
	}

	if quote.Status == domain.StatusSuperseded {
		r.put(ctx, versionKey(documentID, version), quote)
	}
	return quote, nil
}

// GetLatestBatch goes straight to the store: mixing cached and live rows
// could return a stale revision next to a fresh one for related documents.
func (r *Repository) GetLatestBatch(ctx context.Context, documentIDs []string) (map[string]domain.Quote, error) {
	return r.store.GetLatestBatch(ctx, documentIDs)
}

// ListVersions is an audit read and bypasses the cache.
func (r *Repository) ListVersions(ctx context.Context, documentID string) ([]domain.Quote, error) {
	return r.store.ListVersions(ctx, documentID)
}

func (r *Repository) get(ctx context.Context, key string) *domain.Quote {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		// A broken cache reads the same as a miss.
		return nil
	}

	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil
	}
	return &quote
}

// putLatest stores the quote as the document's latest entry unless the cache
// already holds a version at least as new. The compare-and-set runs under
// WATCH: if the entry changes between the read and the write, the
// transaction aborts and the newer entry wins.
func (r *Repository) putLatest(ctx context.Context, quote *domain.Quote) {
	key := latestKey(quote.DocumentID)
	_ = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == nil {
			var cached domain.Quote
			if json.Unmarshal(raw, &cached) == nil && cached.Version >= quote.Version {
				return nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return err
		}

		encoded, err := json.Marshal(quote)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		return err
	}, key)
}

func (r *Repository) put(ctx context.Context, key string, quote *domain.Quote) {
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, key, raw, r.ttl).Err()
}

func latestKey(documentID string) string {
	return "quote:latest:" + documentID
}

func versionKey(documentID string, version int64) string {
	return fmt.Sprintf("quote:%s:%d", documentID, version)
}
