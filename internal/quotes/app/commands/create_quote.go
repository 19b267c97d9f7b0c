package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/google/uuid"
)

// maxAppendAttempts bounds the retry loop on version-assignment races.
const maxAppendAttempts = 3

type CreateQuoteCommand struct {
	DocumentID     string
	Content        string
	Author         string
	Tags           []string
	Category       string
	Language       string
	IdempotencyKey string
}

func (c CreateQuoteCommand) Validate() error {
	if strings.TrimSpace(c.IdempotencyKey) == "" {
		return errors.New("idempotency_key is required")
	}
	if _, err := uuid.Parse(c.IdempotencyKey); err != nil {
		return errors.New("idempotency_key must be a valid UUID")
	}
	quote := domain.Quote{
		DocumentID: c.DocumentID,
		Content:    c.Content,
		Author:     c.Author,
		Tags:       c.Tags,
		Category:   c.Category,
		Language:   c.Language,
	}
	return quote.Validate()
}

// Fingerprint hashes the semantic payload of the command so a retried request
// can be told apart from key reuse with different content. Fields are
// length-prefixed so boundaries cannot collide.
func (c CreateQuoteCommand) Fingerprint() string {
	h := sha256.New()
	fields := []string{
		c.DocumentID,
		c.Content,
		c.Author,
		strings.Join(c.Tags, "\x1f"),
		c.Category,
		c.Language,
	}
	for _, field := range fields {
		fmt.Fprintf(h, "%d:%s;", len(field), field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CreateQuoteResult carries the created or replayed quote. Replayed is true
// when the quote came from a prior request with the same idempotency key.
type CreateQuoteResult struct {
	Quote    domain.Quote
	Replayed bool
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CreateQuoteCommand) (*CreateQuoteResult, error)
}

type CreateQuoteCommandHandler struct {
	store  ports.QuoteStore
	ledger ports.IdempotencyLedger
	events ports.EventBus
}

func NewCreateQuoteCommandHandler(
	store ports.QuoteStore,
	ledger ports.IdempotencyLedger,
	events ports.EventBus,
) *CreateQuoteCommandHandler {
	return &CreateQuoteCommandHandler{
		store:  store,
		ledger: ledger,
		events: events,
	}
}

func (h *CreateQuoteCommandHandler) Handle(ctx context.Context, cmd CreateQuoteCommand) (*CreateQuoteResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	cmd = cmd.withDefaults()

	reservation, err := h.ledger.Reserve(ctx, cmd.IdempotencyKey, cmd.Fingerprint())
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}

	switch reservation.Outcome {
	case ports.ReserveDuplicate:
		var quote domain.Quote
		if err := json.Unmarshal(reservation.Result.Body, &quote); err != nil {
			return nil, fmt.Errorf("decode stored result: %w", err)
		}
		return &CreateQuoteResult{Quote: quote, Replayed: true}, nil
	case ports.ReserveInProgress:
		return nil, ports.ErrRequestInProgress
	case ports.ReserveConflict:
		return nil, ports.ErrKeyReuse
	}

	quote := domain.Quote{
		ID:         uuid.NewString(),
		DocumentID: cmd.DocumentID,
		Content:    cmd.Content,
		Author:     cmd.Author,
		Tags:       cmd.Tags,
		Category:   cmd.Category,
		Language:   cmd.Language,
		Status:     domain.StatusActive,
		CreatedAt:  time.Now().UTC(),
	}

	created, err := h.appendWithRetry(ctx, quote)
	if err != nil {
		h.abort(ctx, cmd.IdempotencyKey)
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, ports.ErrRetryExhausted
		}
		return nil, err
	}

	body, err := json.Marshal(created)
	if err != nil {
		h.abort(ctx, cmd.IdempotencyKey)
		return nil, fmt.Errorf("encode stored result: %w", err)
	}

	result := ports.StoredResult{
		QuoteID:    created.ID,
		StatusCode: http.StatusCreated,
		Body:       body,
	}
	if err := h.ledger.Complete(ctx, cmd.IdempotencyKey, result); err != nil {
		// Release the key rather than leave it pending for the whole TTL: a
		// stuck pending entry would answer every retry with 409 even though
		// the quote exists.
		h.abort(ctx, cmd.IdempotencyKey)
		return &CreateQuoteResult{Quote: *created}, fmt.Errorf("quote saved but failed to record idempotency result: %w", err)
	}

	if err := h.publishEvents(ctx, created); err != nil {
		return &CreateQuoteResult{Quote: *created}, fmt.Errorf("quote saved but failed to publish event: %w", err)
	}

	return &CreateQuoteResult{Quote: *created}, nil
}

func (h *CreateQuoteCommandHandler) appendWithRetry(ctx context.Context, quote domain.Quote) (*domain.Quote, error) {
	var lastErr error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		created, err := h.store.Append(ctx, quote)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// abort releases the reservation on failure paths. It runs detached from the
// request context so an abandoned request cannot leave the key stuck.
func (h *CreateQuoteCommandHandler) abort(ctx context.Context, key string) {
	_ = h.ledger.Abort(context.WithoutCancel(ctx), key)
}

func (h *CreateQuoteCommandHandler) publishEvents(ctx context.Context, quote *domain.Quote) error {
	if err := h.events.PublishQuoteCreated(ctx, quote.ID, quote.DocumentID, quote.Version); err != nil {
		return err
	}
	if quote.Version > 1 {
		return h.events.PublishQuoteSuperseded(ctx, quote.DocumentID, quote.Version-1)
	}
	return nil
}

func (c CreateQuoteCommand) withDefaults() CreateQuoteCommand {
	if c.Category == "" {
		c.Category = "general"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	return c
}
