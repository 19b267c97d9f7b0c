package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idempotency:"

	statusPending = "pending"
	statusDone    = "done"

	// reserveAttempts covers the window where an entry expires between our
	// failed SET NX and the follow-up GET.
	reserveAttempts = 2
)

type record struct {
	Fingerprint string              `json:"fingerprint"`
	Status      string              `json:"status"`
	Result      *ports.StoredResult `json:"result,omitempty"`
}

// Store keeps idempotency reservations in Redis. SET NX is the atomic
// conditional write; expiry is native via the key TTL, matching the 24h
// recycling policy.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Reserve(ctx context.Context, key, fingerprint string) (ports.Reservation, error) {
	pending, err := json.Marshal(record{Fingerprint: fingerprint, Status: statusPending})
	if err != nil {
		return ports.Reservation{}, fmt.Errorf("encode pending record: %w", err)
	}

	for attempt := 0; attempt < reserveAttempts; attempt++ {
		claimed, err := s.client.SetNX(ctx, keyPrefix+key, pending, s.ttl).Result()
		if err != nil {
			return ports.Reservation{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if claimed {
			return ports.Reservation{Outcome: ports.ReserveFresh}, nil
		}

		raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Entry expired between SET NX and GET; try again.
				continue
			}
			return ports.Reservation{}, fmt.Errorf("read idempotency key: %w", err)
		}

		var existing record
		if err := json.Unmarshal(raw, &existing); err != nil {
			return ports.Reservation{}, fmt.Errorf("decode idempotency record: %w", err)
		}

		if existing.Fingerprint != fingerprint {
			return ports.Reservation{Outcome: ports.ReserveConflict}, nil
		}
		if existing.Status == statusPending {
			return ports.Reservation{Outcome: ports.ReserveInProgress}, nil
		}
		return ports.Reservation{Outcome: ports.ReserveDuplicate, Result: existing.Result}, nil
	}

	return ports.Reservation{}, fmt.Errorf("reserve idempotency key %q: could not settle", key)
}

// Complete overwrites the pending record while keeping its TTL. The read and
// the overwrite run under WATCH: if the entry expires or changes in between,
// the transaction aborts instead of writing a record with no expiry.
func (s *Store) Complete(ctx context.Context, key string, result ports.StoredResult) error {
	redisKey := keyPrefix + key

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, redisKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("complete idempotency key %q: no pending reservation", key)
			}
			return fmt.Errorf("read idempotency key: %w", err)
		}

		var existing record
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode idempotency record: %w", err)
		}
		if existing.Status != statusPending {
			return fmt.Errorf("complete idempotency key %q: reservation already completed", key)
		}

		done, err := json.Marshal(record{Fingerprint: existing.Fingerprint, Status: statusDone, Result: &result})
		if err != nil {
			return fmt.Errorf("encode done record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, done, redis.KeepTTL)
			return nil
		})
		return err
	}, redisKey)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("complete idempotency key %q: reservation expired", key)
	}
	return err
}

// Abort deletes the entry only while it is still pending, so a completed
// record keeps serving duplicates.
func (s *Store) Abort(ctx context.Context, key string) error {
	redisKey := keyPrefix + key

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, redisKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("read idempotency key: %w", err)
		}

		var existing record
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode idempotency record: %w", err)
		}
		if existing.Status != statusPending {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, redisKey)
			return nil
		})
		return err
	}, redisKey)

	if errors.Is(err, redis.TxFailedErr) {
		// A racing Complete or expiry settled the entry first.
		return nil
	}
	if err != nil {
		return fmt.Errorf("abort idempotency key: %w", err)
	}
	return nil
}
