// Package docstore retrieves candidate documents from a document store.
package docstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
)

// Source labels stamped on retrieved documents
const (
	SourceOpenSearch = "opensearch"
	SourceMediaWiki  = "mediawiki"
	SourceMock       = "mock"
)

// DefaultTimeout bounds a single search call
const DefaultTimeout = 10 * time.Second

// Searcher is a document store backend.
type Searcher interface {
	// Search returns up to size documents ordered by the store's relevance score, descending.
	// exactMatch selects a best-fields query; otherwise a broader should-query is issued.
	Search(ctx context.Context, query string, size int, exactMatch bool) ([]repository.Document, error)

	// Name identifies the backend in logs.
	Name() string
}

// Adapter wraps a Searcher so that retrieval never fails.
type Adapter struct {
	searcher Searcher
	timeout  time.Duration
	logger   *slog.Logger
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an adapter over searcher
func NewAdapter(searcher Searcher, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		searcher: searcher,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Search queries the store. Errors and timeouts yield an empty, non-nil result.
func (a *Adapter) Search(ctx context.Context, query string, size int, exactMatch bool) []repository.Document {
	if size <= 0 {
		return []repository.Document{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	docs, err := a.searcher.Search(ctx, query, size, exactMatch)
	docs = upstream.OrEmpty(ctx, a.logger, a.searcher.Name(), docs, upstream.Wrap(a.searcher.Name(), err))
	if len(docs) > size {
		docs = docs[:size]
	}
	return docs
}

// Backend returns the name of the wrapped searcher
func (a *Adapter) Backend() string {
	return a.searcher.Name()
}
