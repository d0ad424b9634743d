// Package reranker reorders retrieved documents by semantic similarity to the query.
//
// The reranker embeds the query and each document (title and content joined
// by a space) and sorts documents by cosine similarity. The store's lexical
// score is replaced, never blended.
package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/practice2025/supportai/internal/embedder"
	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
	"github.com/practice2025/supportai/internal/vectorstore"
)

// Reranker defines the interface for re-ranking search results.
type Reranker interface {
	// Rerank returns copies of docs sorted by relevance to query, descending,
	// with Score set to the computed relevance.
	Rerank(ctx context.Context, query string, docs []repository.Document) ([]repository.Document, error)
}

// EmbeddingReranker scores documents by embedding cosine similarity.
type EmbeddingReranker struct {
	embedder embedder.Embedder
	cache    vectorstore.EmbeddingCache
	logger   *slog.Logger
}

// Option is a functional option for configuring EmbeddingReranker.
type Option func(*EmbeddingReranker)

// WithCache reuses document embeddings across requests.
func WithCache(cache vectorstore.EmbeddingCache) Option {
	return func(r *EmbeddingReranker) {
		r.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *EmbeddingReranker) {
		r.logger = logger
	}
}

// NewEmbeddingReranker creates a reranker. A nil embedder makes every call report ErrUnavailable.
func NewEmbeddingReranker(emb embedder.Embedder, opts ...Option) *EmbeddingReranker {
	r := &EmbeddingReranker{
		embedder: emb,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DocumentText is the text embedded for a document
func DocumentText(doc repository.Document) string {
	return doc.Title + " " + doc.Content
}

// Rerank implements Reranker
func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, docs []repository.Document) ([]repository.Document, error) {
	if len(docs) == 0 {
		return []repository.Document{}, nil
	}
	if r.embedder == nil {
		return nil, upstream.Disabled("embedder")
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, upstream.Wrap("embedder", err)
	}

	docVecs, err := r.documentVectors(ctx, docs)
	if err != nil {
		return nil, upstream.Wrap("embedder", err)
	}

	out := make([]repository.Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.WithScore(CosineSimilarity(queryVec, docVecs[i]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// documentVectors returns one vector per doc, embedding only cache misses
func (r *EmbeddingReranker) documentVectors(ctx context.Context, docs []repository.Document) ([][]float32, error) {
	vecs := make([][]float32, len(docs))

	cached := map[string][]float32{}
	if r.cache != nil {
		keys := make([]vectorstore.Key, len(docs))
		for i, doc := range docs {
			keys[i] = vectorstore.Key{DocID: doc.ID, Text: DocumentText(doc)}
		}
		found, err := r.cache.Lookup(ctx, keys)
		if hit, ok := upstream.OrZero(ctx, r.logger, "embedding cache", found, upstream.Wrap("embedding cache", err)); ok && hit != nil {
			cached = hit
		}
	}

	var missing []int
	var texts []string
	for i, doc := range docs {
		if vec, ok := cached[doc.ID]; ok {
			vecs[i] = vec
			continue
		}
		missing = append(missing, i)
		texts = append(texts, DocumentText(doc))
	}
	if len(missing) == 0 {
		return vecs, nil
	}

	embedded, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(embedded), len(texts))
	}

	entries := make([]vectorstore.Entry, 0, len(missing))
	for j, i := range missing {
		vecs[i] = embedded[j]
		entries = append(entries, vectorstore.Entry{DocID: docs[i].ID, Text: texts[j], Vector: embedded[j]})
	}

	if r.cache != nil {
		if err := r.cache.Store(ctx, entries); err != nil {
			r.logger.Warn("failed to cache document embeddings", "error", err)
		}
	}
	return vecs, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Reranker = (*EmbeddingReranker)(nil)
