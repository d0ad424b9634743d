// Package querycache short-circuits repeated and near-duplicate queries.
//
// A lookup tries, in order: the user's own history (case-insensitive exact
// query), the normalized query as a frequent-query key, substring containment
// against every key, and finally word overlap. The first step that finds an
// entry decides the outcome; the entry is served only if it is authoritative.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/practice2025/supportai/internal/repository"
)

// OverlapThreshold is the word-overlap score a key must exceed to match
const OverlapThreshold = 0.6

// MinAuthoritativeCount is the hit count above which an answerless entry is served
const MinAuthoritativeCount = 2

// MatchKind tells which lookup step produced a cached answer
type MatchKind string

const (
	MatchHistory   MatchKind = "history"
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
	MatchOverlap   MatchKind = "overlap"
)

// CachedAnswer is a previously served answer
type CachedAnswer struct {
	Answer  string
	Sources []repository.Source
	Count   int
	Kind    MatchKind
	// Key is the frequent-query key or the history query that matched.
	Key string
}

// Authoritative reports whether the answer may be served without recomputation
func (c *CachedAnswer) Authoritative() bool {
	return c.Answer != "" || c.Count > MinAuthoritativeCount
}

// Stats summarizes the cache
type Stats struct {
	Keys int `json:"keys"`
}

// Cache is the query similarity cache backed by a repository.CacheRepository
type Cache struct {
	repo   repository.CacheRepository
	index  *wordIndex
	limit  int
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithHistoryLimit sets the number of records kept per user.
func WithHistoryLimit(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithClock sets the time source for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache over repo and indexes the stored frequent queries
func New(ctx context.Context, repo repository.CacheRepository, opts ...Option) (*Cache, error) {
	c := &Cache{
		repo:   repo,
		index:  newWordIndex(),
		limit:  repository.DefaultHistoryLimit,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh rebuilds the word index from the repository
func (c *Cache) Refresh(ctx context.Context) error {
	entries, err := c.repo.ListFrequentQueries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load frequent queries: %w", err)
	}
	c.index.reset(entries)
	return nil
}

// Watch calls Refresh every interval until ctx is done, so keys written by other
// processes sharing the repository become visible to the substring and overlap steps.
// Refresh failures are logged and the previous index is kept.
func (c *Cache) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("failed to refresh query index", "error", err)
			}
		}
	}
}

// Lookup returns an authoritative cached answer for query, or nil
func (c *Cache) Lookup(ctx context.Context, query, userID string) *CachedAnswer {
	found, err := c.find(ctx, query, userID)
	if err != nil {
		c.logger.Warn("cache lookup failed, treating as miss", "error", err)
		return nil
	}
	if found == nil {
		return nil
	}
	if !found.Authoritative() {
		c.logger.Debug("cache match not authoritative", "kind", found.Kind, "key", found.Key, "count", found.Count)
		return nil
	}
	return found
}

func (c *Cache) find(ctx context.Context, query, userID string) (*CachedAnswer, error) {
	if userID != "" {
		history, err := c.repo.GetHistory(ctx, userID)
		if err != nil {
			return nil, err
		}
		lower := strings.ToLower(query)
		for _, rec := range history {
			if strings.ToLower(rec.Query) == lower {
				return &CachedAnswer{
					Answer:  rec.Answer,
					Sources: repository.CloneSources(rec.Sources),
					Kind:    MatchHistory,
					Key:     rec.Query,
				}, nil
			}
		}
	}

	normalized := Normalize(query)
	if normalized == "" {
		return nil, nil
	}

	entry, err := c.repo.GetFrequentQuery(ctx, normalized)
	switch {
	case err == nil:
		c.index.add(entry.Query, entry.Seq)
		return fromEntry(entry, MatchExact), nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if key, ok := c.index.substring(normalized); ok {
		return c.entry(ctx, key, MatchSubstring)
	}

	if key, _, ok := c.index.bestOverlap(normalized, OverlapThreshold); ok {
		return c.entry(ctx, key, MatchOverlap)
	}
	return nil, nil
}

func (c *Cache) entry(ctx context.Context, key string, kind MatchKind) (*CachedAnswer, error) {
	entry, err := c.repo.GetFrequentQuery(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fromEntry(entry, kind), nil
}

func fromEntry(e *repository.FrequentQuery, kind MatchKind) *CachedAnswer {
	return &CachedAnswer{
		Answer:  e.LastResponse,
		Sources: repository.CloneSources(e.Sources),
		Count:   e.Count,
		Kind:    kind,
		Key:     e.Query,
	}
}

// RecordUserHistory prepends the interaction to the user's history. An empty userID is ignored.
func (c *Cache) RecordUserHistory(ctx context.Context, userID, query, answer string, sources []repository.Source) error {
	if userID == "" {
		return nil
	}
	rec := repository.QueryRecord{
		Query:     query,
		Timestamp: c.now().UTC(),
		Answer:    answer,
		Sources:   repository.CloneSources(sources),
	}
	if err := c.repo.PrependHistory(ctx, userID, rec, c.limit); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// RecordFrequentQuery counts one more occurrence of the normalized query
func (c *Cache) RecordFrequentQuery(ctx context.Context, query, answer string, sources []repository.Source) error {
	key := Normalize(query)
	if key == "" {
		return nil
	}
	entry, err := c.repo.IncrementFrequentQuery(ctx, key, answer, sources)
	if err != nil {
		return fmt.Errorf("failed to record frequent query: %w", err)
	}
	c.index.add(entry.Query, entry.Seq)
	return nil
}

// Stats returns the number of indexed keys
func (c *Cache) Stats() Stats {
	return Stats{Keys: c.index.len()}
}

// Entries returns every frequent query in insertion order
func (c *Cache) Entries(ctx context.Context) ([]repository.FrequentQuery, error) {
	return c.repo.ListFrequentQueries(ctx)
}

// History returns the user's records, most recent first
func (c *Cache) History(ctx context.Context, userID string) ([]repository.QueryRecord, error) {
	return c.repo.GetHistory(ctx, userID)
}
