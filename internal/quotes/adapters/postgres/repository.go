package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/quotes/internal/quotes/domain"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append supersedes the currently active revision and inserts the next one in
// a single transaction. The unique index on (document_id, version) is the
// optimistic guard: a racing append hits a unique violation and surfaces as
// ports.ErrVersionConflict.
func (r *Repository) Append(ctx context.Context, quote domain.Quote) (*domain.Quote, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxVersion int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM quotes WHERE document_id = $1`,
		quote.DocumentID,
	).Scan(&maxVersion)
	if err != nil {
		return nil, fmt.Errorf("select max version: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE quotes SET status = $1 WHERE document_id = $2 AND status = $3`,
		domain.StatusSuperseded, quote.DocumentID, domain.StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("supersede previous revision: %w", err)
	}

	quote.Version = maxVersion + 1
	quote.Status = domain.StatusActive

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (id, document_id, content, author, tags, category, language, version, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		quote.ID,
		quote.DocumentID,
		quote.Content,
		quote.Author,
		quote.Tags,
		quote.Category,
		quote.Language,
		quote.Version,
		quote.Status,
		quote.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("insert quote version %d: %w", quote.Version, ports.ErrVersionConflict)
		}
		return nil, fmt.Errorf("insert quote: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append transaction: %w", err)
	}

	return &quote, nil
}

func (r *Repository) GetLatest(ctx context.Context, documentID string) (*domain.Quote, error) {
	query := `
		SELECT id, document_id, content, author, tags, category, language, version, status, created_at
		FROM quotes
		WHERE document_id = $1 AND status = $2
	`

	quote, err := scanQuote(r.pool.QueryRow(ctx, query, documentID, domain.StatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select latest quote: %w", err)
	}

	return quote, nil
}

func (r *Repository) Get(ctx context.Context, documentID string, version int64) (*domain.Quote, error) {
	query := `
		SELECT id, document_id, content, author, tags, category, language, version, status, created_at
		FROM quotes
		WHERE document_id = $1 AND version = $2
	`

	quote, err := scanQuote(r.pool.QueryRow(ctx, query, documentID, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select quote: %w", err)
	}

	return quote, nil
}

// GetLatestBatch resolves all requested documents in one partition-and-rank
// query instead of per-document point lookups. DISTINCT ON picks the maximum
// (version, created_at, id) row per document; the id tiebreak keeps results
// reproducible.
func (r *Repository) GetLatestBatch(ctx context.Context, documentIDs []string) (map[string]domain.Quote, error) {
	query := `
		SELECT DISTINCT ON (document_id)
			id, document_id, content, author, tags, category, language, version, status, created_at
		FROM quotes
		WHERE document_id = ANY($1) AND status = $2
		ORDER BY document_id, version DESC, created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, documentIDs, domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query latest batch: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Quote, len(documentIDs))
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		result[quote.DocumentID] = *quote
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest batch: %w", err)
	}

	return result, nil
}

func (r *Repository) ListVersions(ctx context.Context, documentID string) ([]domain.Quote, error) {
	query := `
		SELECT id, document_id, content, author, tags, category, language, version, status, created_at
		FROM quotes
		WHERE document_id = $1
		ORDER BY version ASC
	`

	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, *quote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return quotes, nil
}

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var quote domain.Quote
	err := row.Scan(
		&quote.ID,
		&quote.DocumentID,
		&quote.Content,
		&quote.Author,
		&quote.Tags,
		&quote.Category,
		&quote.Language,
		&quote.Version,
		&quote.Status,
		&quote.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
