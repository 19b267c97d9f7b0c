package ports

import (
	"context"
	"encoding/json"
	"errors"
)

// ReserveOutcome classifies the result of reserving an idempotency key.
type ReserveOutcome string

const (
	// ReserveFresh means the key was unseen: the caller owns the reservation
	// and must finish it with Complete or release it with Abort.
	ReserveFresh ReserveOutcome = "fresh"
	// ReserveDuplicate means the key completed before with the same
	// fingerprint; the stored result must be replayed.
	ReserveDuplicate ReserveOutcome = "duplicate"
	// ReserveInProgress means another request holds a pending reservation for
	// the key with the same fingerprint.
	ReserveInProgress ReserveOutcome = "in_progress"
	// ReserveConflict means the key was used before with a different payload.
	ReserveConflict ReserveOutcome = "conflict"
)

// StoredResult is the outcome of the first request that used a key, replayed
// verbatim for duplicates.
type StoredResult struct {
	QuoteID    string          `json:"quote_id"`
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// Reservation is the result of a Reserve call. Result is set only for
// ReserveDuplicate.
type Reservation struct {
	Outcome ReserveOutcome
	Result  *StoredResult
}

// IdempotencyLedger ensures create operations have at most one side effect
// per client-supplied key. Reserve must be a single atomic conditional write,
// never a read followed by a write: with the same never-before-seen key,
// exactly one concurrent caller observes ReserveFresh.
type IdempotencyLedger interface {
	Reserve(ctx context.Context, key, fingerprint string) (Reservation, error)
	// Complete fills in the result for a fresh reservation. It must be called
	// exactly once per successful Reserve that returned ReserveFresh.
	Complete(ctx context.Context, key string, result StoredResult) error
	// Abort releases a pending reservation so the key becomes reusable.
	// Mandatory on every failure path after a fresh reservation.
	Abort(ctx context.Context, key string) error
}

var (
	// ErrKeyReuse is returned when an idempotency key is reused with a
	// different request payload.
	ErrKeyReuse = errors.New("idempotency key reused with different payload")
	// ErrRequestInProgress is returned when a request with the same key and
	// payload is still in flight.
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")
	// ErrRetryExhausted is returned when version assignment kept conflicting
	// after the bounded retries. The reservation was aborted, so the caller
	// may retry with the same key.
	ErrRetryExhausted = errors.New("append retries exhausted")
)
