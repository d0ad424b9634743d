// Package repository defines domain models and storage interfaces for documents, query history and frequent queries.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit is the number of records kept per user
const DefaultHistoryLimit = 20

// Document is a retrievable unit returned by a document store.
// Documents are treated as immutable; use WithScore to derive a rescored copy.
type Document struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	Content string   `json:"content" yaml:"content"`
	Score   float64  `json:"score" yaml:"-"`
	Source  string   `json:"source" yaml:"source"`
	URL     string   `json:"url,omitempty" yaml:"url,omitempty"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Excerpt is the store's highlighted fragment of Content, if any.
	Excerpt string `json:"excerpt,omitempty" yaml:"-"`
}

// WithScore returns a shallow copy of the document carrying the given score
func (d Document) WithScore(score float64) Document {
	d.Score = score
	return d
}

// ToSource projects the document into a client-facing source reference
func (d Document) ToSource() Source {
	return Source{
		Title:   d.Title,
		ID:      d.ID,
		Score:   d.Score,
		URL:     d.URL,
		Excerpt: d.Excerpt,
	}
}

// Source is a compact projection of a Document for client display
type Source struct {
	Title   string  `json:"title"`
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	URL     string  `json:"url,omitempty"`
	Excerpt string  `json:"excerpt,omitempty"`
}

// SourcesFrom projects at most n leading documents into sources.
// The result is never nil.
func SourcesFrom(docs []Document, n int) []Source {
	if n > len(docs) {
		n = len(docs)
	}
	if n < 0 {
		n = 0
	}
	sources := make([]Source, 0, n)
	for _, doc := range docs[:n] {
		sources = append(sources, doc.ToSource())
	}
	return sources
}

// CloneSources returns a copy of the slice, never nil
func CloneSources(sources []Source) []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

// QueryRecord is one user interaction kept in the per-user history
type QueryRecord struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
}

// FrequentQuery aggregates every occurrence of a normalized query
type FrequentQuery struct {
	Query        string   `json:"query"`
	Count        int      `json:"count"`
	LastResponse string   `json:"last_response"`
	Sources      []Source `json:"sources"`
	// Seq is the insertion order of the key; it never changes once assigned.
	Seq uint64 `json:"seq"`
}

// Apply records one more occurrence of the query with the given answer.
// Sources are replaced only when the new answer carries any.
func (f *FrequentQuery) Apply(answer string, sources []Source) {
	f.Count++
	f.LastResponse = answer
	if len(sources) > 0 {
		f.Sources = CloneSources(sources)
	}
	if f.Sources == nil {
		f.Sources = []Source{}
	}
}

// PrependRecord inserts rec at the head of records and trims to limit
func PrependRecord(records []QueryRecord, rec QueryRecord, limit int) []QueryRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	keep := len(records)
	if keep > limit-1 {
		keep = limit - 1
	}
	out := make([]QueryRecord, 0, keep+1)
	out = append(out, rec)
	out = append(out, records[:keep]...)
	return out
}

// HistoryRepository stores per-user bounded query histories
type HistoryRepository interface {
	// GetHistory returns the user's records, most recent first. Unknown users yield an empty slice.
	GetHistory(ctx context.Context, userID string) ([]QueryRecord, error)

	// PrependHistory atomically inserts rec as the most recent record and trims the history to limit.
	PrependHistory(ctx context.Context, userID string, rec QueryRecord, limit int) error
}

// FrequentQueryRepository stores aggregates keyed by normalized query
type FrequentQueryRepository interface {
	// GetFrequentQuery returns the entry for key or ErrNotFound.
	GetFrequentQuery(ctx context.Context, key string) (*FrequentQuery, error)

	// ListFrequentQueries returns every entry ordered by insertion sequence.
	ListFrequentQueries(ctx context.Context) ([]FrequentQuery, error)

	// IncrementFrequentQuery atomically creates the entry if needed, increments its count,
	// replaces the last response and, when non-empty, the sources.
	IncrementFrequentQuery(ctx context.Context, key, answer string, sources []Source) (*FrequentQuery, error)
}

// CacheRepository is the storage service behind the query similarity cache.
// Implementations must serialize read-modify-write access to each mapping.
type CacheRepository interface {
	HistoryRepository
	FrequentQueryRepository

	// Close releases resources held by the backing store.
	Close() error
}
