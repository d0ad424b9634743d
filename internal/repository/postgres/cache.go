package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/practice2025/supportai/internal/repository"
)

// CacheRepo implements repository.CacheRepository
type CacheRepo struct {
	db *DB
}

// NewCacheRepo creates a new cache repository
func NewCacheRepo(db *DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// GetHistory returns the user's records, most recent first
func (r *CacheRepo) GetHistory(ctx context.Context, userID string) ([]repository.QueryRecord, error) {
	var recordsJSON []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT records FROM query_history WHERE user_id = $1`, userID).Scan(&recordsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []repository.QueryRecord{}, nil
		}
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	records := []repository.QueryRecord{}
	if err := json.Unmarshal(recordsJSON, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return records, nil
}

// PrependHistory inserts rec at the head of the user's history inside a row-locking transaction
func (r *CacheRepo) PrependHistory(ctx context.Context, userID string, rec repository.QueryRecord, limit int) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO query_history (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("failed to create history row: %w", err)
	}

	var recordsJSON []byte
	if err := tx.QueryRow(ctx, `SELECT records FROM query_history WHERE user_id = $1 FOR UPDATE`, userID).Scan(&recordsJSON); err != nil {
		return fmt.Errorf("failed to lock history row: %w", err)
	}

	var records []repository.QueryRecord
	if err := json.Unmarshal(recordsJSON, &records); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	updated, err := json.Marshal(repository.PrependRecord(records, rec, limit))
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE query_history SET records = $2, updated_at = NOW() WHERE user_id = $1`, userID, updated); err != nil {
		return fmt.Errorf("failed to update history: %w", err)
	}

	return tx.Commit(ctx)
}

// GetFrequentQuery returns the entry for key or repository.ErrNotFound
func (r *CacheRepo) GetFrequentQuery(ctx context.Context, key string) (*repository.FrequentQuery, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT query, count, last_response, sources, seq
		FROM frequent_queries
		WHERE query = $1
	`, key)

	entry, err := scanFrequentQuery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get frequent query: %w", err)
	}
	return entry, nil
}

// ListFrequentQueries returns every entry ordered by insertion sequence
func (r *CacheRepo) ListFrequentQueries(ctx context.Context) ([]repository.FrequentQuery, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT query, count, last_response, sources, seq
		FROM frequent_queries
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list frequent queries: %w", err)
	}
	defer rows.Close()

	entries := []repository.FrequentQuery{}
	for rows.Next() {
		entry, err := scanFrequentQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frequent query: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate frequent queries: %w", err)
	}
	return entries, nil
}

// IncrementFrequentQuery records one occurrence of key in a single upsert
func (r *CacheRepo) IncrementFrequentQuery(ctx context.Context, key, answer string, sources []repository.Source) (*repository.FrequentQuery, error) {
	if sources == nil {
		sources = []repository.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	row := r.db.Pool.QueryRow(ctx, `
		INSERT INTO frequent_queries (query, count, last_response, sources)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (query) DO UPDATE SET
			count = frequent_queries.count + 1,
			last_response = EXCLUDED.last_response,
			sources = CASE
				WHEN jsonb_array_length(EXCLUDED.sources) > 0 THEN EXCLUDED.sources
				ELSE frequent_queries.sources
			END,
			updated_at = NOW()
		RETURNING query, count, last_response, sources, seq
	`, key, answer, sourcesJSON)

	entry, err := scanFrequentQuery(row)
	if err != nil {
		return nil, fmt.Errorf("failed to increment frequent query: %w", err)
	}
	return entry, nil
}

// Close is a no-op; the pool is owned by DB
func (r *CacheRepo) Close() error {
	return nil
}

func scanFrequentQuery(row pgx.Row) (*repository.FrequentQuery, error) {
	var entry repository.FrequentQuery
	var sourcesJSON []byte
	var seq int64
	if err := row.Scan(&entry.Query, &entry.Count, &entry.LastResponse, &sourcesJSON, &seq); err != nil {
		return nil, err
	}
	entry.Seq = uint64(seq)
	entry.Sources = []repository.Source{}
	if err := json.Unmarshal(sourcesJSON, &entry.Sources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
	}
	return &entry, nil
}

var _ repository.CacheRepository = (*CacheRepo)(nil)
