package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	statusPending = "pending"
	statusDone    = "done"

	// reserveAttempts covers the window where an expired row is purged by a
	// concurrent caller between our failed insert and our read.
	reserveAttempts = 2
)

type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

// Reserve is a single conditional insert: the primary key on the key column
// guarantees exactly one concurrent caller claims a never-before-seen key.
// Expired rows are purged lazily so a recycled key behaves as absent.
func (s *Store) Reserve(ctx context.Context, key, fingerprint string) (ports.Reservation, error) {
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM idempotency_keys WHERE key = $1 AND expires_at <= now()`,
			key,
		)
		if err != nil {
			return ports.Reservation{}, fmt.Errorf("purge expired idempotency key: %w", err)
		}

		now := time.Now().UTC()
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO idempotency_keys (key, fingerprint, status, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (key) DO NOTHING
		`, key, fingerprint, statusPending, now, now.Add(s.ttl))
		if err != nil {
			return ports.Reservation{}, fmt.Errorf("insert idempotency key: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return ports.Reservation{Outcome: ports.ReserveFresh}, nil
		}

		reservation, err := s.classifyExisting(ctx, key, fingerprint)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// The row vanished between insert and read; try again.
				continue
			}
			return ports.Reservation{}, err
		}
		return reservation, nil
	}

	return ports.Reservation{}, fmt.Errorf("reserve idempotency key %q: could not settle", key)
}

func (s *Store) classifyExisting(ctx context.Context, key, fingerprint string) (ports.Reservation, error) {
	var (
		storedFingerprint string
		status            string
		result            ports.StoredResult
	)
	err := s.pool.QueryRow(ctx, `
		SELECT fingerprint, status, COALESCE(quote_id, ''), COALESCE(status_code, 0), COALESCE(body, 'null'::jsonb)
		FROM idempotency_keys
		WHERE key = $1 AND expires_at > now()
	`, key).Scan(&storedFingerprint, &status, &result.QuoteID, &result.StatusCode, &result.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.Reservation{}, err
		}
		return ports.Reservation{}, fmt.Errorf("select idempotency key: %w", err)
	}

	if storedFingerprint != fingerprint {
		return ports.Reservation{Outcome: ports.ReserveConflict}, nil
	}
	if status == statusPending {
		return ports.Reservation{Outcome: ports.ReserveInProgress}, nil
	}
	return ports.Reservation{Outcome: ports.ReserveDuplicate, Result: &result}, nil
}

// Complete records the outcome for a pending reservation.
func (s *Store) Complete(ctx context.Context, key string, result ports.StoredResult) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, quote_id = $2, status_code = $3, body = $4
		WHERE key = $5 AND status = $6
	`, statusDone, result.QuoteID, result.StatusCode, result.Body, key, statusPending)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete idempotency key %q: no pending reservation", key)
	}
	return nil
}

// Abort releases a pending reservation so the key can be retried.
func (s *Store) Abort(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE key = $1 AND status = $2`,
		key, statusPending,
	)
	if err != nil {
		return fmt.Errorf("abort idempotency key: %w", err)
	}
	return nil
}
