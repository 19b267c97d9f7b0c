package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/quotes/internal/quotes/ports"
)

type entryStatus string

const (
	statusPending entryStatus = "pending"
	statusDone    entryStatus = "done"
)

type entry struct {
	fingerprint string
	status      entryStatus
	result      ports.StoredResult
	expiresAt   time.Time
}

// Store retains idempotency reservations for replaying duplicate requests.
// The mutex makes Reserve a compare-and-swap, so exactly one concurrent
// caller observes a fresh key.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a new in-memory idempotency ledger.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Reserve claims the key if it is absent or expired.
func (s *Store) Reserve(_ context.Context, key, fingerprint string) (ports.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[key]
	if ok && s.now().After(existing.expiresAt) {
		delete(s.entries, key)
		ok = false
	}

	if !ok {
		s.entries[key] = entry{
			fingerprint: fingerprint,
			status:      statusPending,
			expiresAt:   s.now().Add(s.ttl),
		}
		return ports.Reservation{Outcome: ports.ReserveFresh}, nil
	}

	if existing.fingerprint != fingerprint {
		return ports.Reservation{Outcome: ports.ReserveConflict}, nil
	}
	if existing.status == statusPending {
		return ports.Reservation{Outcome: ports.ReserveInProgress}, nil
	}

	result := existing.result
	return ports.Reservation{Outcome: ports.ReserveDuplicate, Result: &result}, nil
}

// Complete fills in the outcome for a pending reservation.
func (s *Store) Complete(_ context.Context, key string, result ports.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[key]
	if !ok || existing.status != statusPending {
		return &noPendingReservationError{key: key}
	}

	existing.status = statusDone
	existing.result = result
	s.entries[key] = existing
	return nil
}

// Abort releases a pending reservation.
func (s *Store) Abort(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && existing.status == statusPending {
		delete(s.entries, key)
	}
	return nil
}

type noPendingReservationError struct {
	key string
}

func (e *noPendingReservationError) Error() string {
	return "no pending reservation for key " + e.key
}
