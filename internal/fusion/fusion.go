// Package fusion combines lexical and semantic retrieval into one ranked result list.
package fusion

import (
	"context"
	"log/slog"

	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/reranker"
	"github.com/practice2025/supportai/internal/upstream"
)

const (
	// ExactPoolSize is the number of documents requested from the exact-match search.
	ExactPoolSize = 5

	// WidenThreshold is the exact-match result count below which semantic search runs.
	WidenThreshold = 3

	// WidenedPoolSize is the number of candidates fetched for reranking.
	WidenedPoolSize = 10

	// MaxResults caps the fused result.
	MaxResults = 5
)

// Searcher is the document store as seen by the retriever. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string, size int, exactMatch bool) []repository.Document
}

// ShouldWiden reports whether semantic search must supplement the exact results
func ShouldWiden(exact []repository.Document) bool {
	return len(exact) < WidenThreshold
}

// Fuse concatenates exact and semantic results, keeps the first document per id
// and truncates to MaxResults. Exact copies win over semantic copies of the same id.
func Fuse(exact, semantic []repository.Document) []repository.Document {
	seen := make(map[string]struct{}, len(exact)+len(semantic))
	out := make([]repository.Document, 0, MaxResults)

	for _, list := range [][]repository.Document{exact, semantic} {
		for _, doc := range list {
			if len(out) == MaxResults {
				return out
			}
			if _, dup := seen[doc.ID]; dup {
				continue
			}
			seen[doc.ID] = struct{}{}
			out = append(out, doc)
		}
	}
	return out
}

// Retriever runs exact search and, when it comes up short, a reranked widened search.
type Retriever struct {
	searcher Searcher
	reranker reranker.Reranker
	logger   *slog.Logger
}

// NewRetriever creates a retriever. A nil reranker disables the semantic path.
func NewRetriever(searcher Searcher, rr reranker.Reranker, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{searcher: searcher, reranker: rr, logger: logger}
}

// Retrieve returns at most MaxResults documents for query
func (r *Retriever) Retrieve(ctx context.Context, query string) []repository.Document {
	exact := r.searcher.Search(ctx, query, ExactPoolSize, true)
	if !ShouldWiden(exact) {
		return exact
	}

	semantic := r.semantic(ctx, query)
	r.logger.Debug("widened retrieval",
		"exact", len(exact),
		"semantic", len(semantic),
	)
	return Fuse(exact, semantic)
}

func (r *Retriever) semantic(ctx context.Context, query string) []repository.Document {
	if r.reranker == nil {
		return []repository.Document{}
	}

	pool := r.searcher.Search(ctx, query, WidenedPoolSize, false)
	if len(pool) == 0 {
		return pool
	}

	ranked, err := r.reranker.Rerank(ctx, query, pool)
	return upstream.OrEmpty(ctx, r.logger, "reranker", ranked, err)
}
