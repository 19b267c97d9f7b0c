package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dejobratic/quotes/internal/idempotency/memory"
	"github.com/dejobratic/quotes/internal/quotes/ports"
)

func TestStoreReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("claims an unknown key", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		reservation, err := store.Reserve(ctx, "key-1", "fp-1")

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveFresh {
			t.Errorf("expected fresh outcome, got %s", reservation.Outcome)
		}
	})

	t.Run("replays a completed reservation", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		result := ports.StoredResult{QuoteID: "q1", StatusCode: 201, Body: []byte(`{"id":"q1"}`)}
		if err := store.Complete(ctx, "key-1", result); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		reservation, err := store.Reserve(ctx, "key-1", "fp-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveDuplicate {
			t.Fatalf("expected duplicate outcome, got %s", reservation.Outcome)
		}

		if reservation.Result == nil || reservation.Result.QuoteID != "q1" {
			t.Errorf("expected stored result for q1, got %+v", reservation.Result)
		}
	})

	t.Run("reports a pending reservation as in progress", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		reservation, err := store.Reserve(ctx, "key-1", "fp-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveInProgress {
			t.Errorf("expected in-progress outcome, got %s", reservation.Outcome)
		}
	})

	t.Run("flags fingerprint mismatch as conflict", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		reservation, err := store.Reserve(ctx, "key-1", "fp-2")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveConflict {
			t.Errorf("expected conflict outcome, got %s", reservation.Outcome)
		}
	})

	t.Run("reclaims an expired key", func(t *testing.T) {
		store := memory.NewStore(10 * time.Millisecond)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		time.Sleep(20 * time.Millisecond)

		reservation, err := store.Reserve(ctx, "key-1", "fp-2")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveFresh {
			t.Errorf("expected fresh outcome after expiry, got %s", reservation.Outcome)
		}
	})

	t.Run("exactly one concurrent caller wins", func(t *testing.T) {
		store := memory.NewStore(time.Minute)
		const callers = 20

		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reservation, err := store.Reserve(ctx, "key-1", "fp-1")
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
					return
				}
				if reservation.Outcome == ports.ReserveFresh {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if fresh != 1 {
			t.Errorf("expected exactly one fresh reservation, got %d", fresh)
		}
	})
}

func TestStoreComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("fails without a pending reservation", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		err := store.Complete(ctx, "key-1", ports.StoredResult{QuoteID: "q1"})

		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("fails for an already completed reservation", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if err := store.Complete(ctx, "key-1", ports.StoredResult{QuoteID: "q1"}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		err := store.Complete(ctx, "key-1", ports.StoredResult{QuoteID: "q2"})

		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestStoreAbort(t *testing.T) {
	ctx := context.Background()

	t.Run("releases a pending key for reuse", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if err := store.Abort(ctx, "key-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		reservation, err := store.Reserve(ctx, "key-1", "fp-2")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveFresh {
			t.Errorf("expected fresh outcome after abort, got %s", reservation.Outcome)
		}
	})

	t.Run("leaves a completed reservation intact", func(t *testing.T) {
		store := memory.NewStore(time.Minute)

		if _, err := store.Reserve(ctx, "key-1", "fp-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if err := store.Complete(ctx, "key-1", ports.StoredResult{QuoteID: "q1"}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if err := store.Abort(ctx, "key-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		reservation, err := store.Reserve(ctx, "key-1", "fp-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if reservation.Outcome != ports.ReserveDuplicate {
			t.Errorf("expected duplicate outcome, got %s", reservation.Outcome)
		}
	})
}
