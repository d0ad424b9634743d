package reranker

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
	"github.com/practice2025/supportai/internal/vectorstore"
)

// keywordEmbedder embeds text as counts of a fixed vocabulary
type keywordEmbedder struct {
	mu      sync.Mutex
	vocab   []string
	batched []string
	err     error
}

func (e *keywordEmbedder) vector(text string) []float32 {
	text = strings.ToLower(text)
	vec := make([]float32, len(e.vocab))
	for i, w := range e.vocab {
		vec[i] = float32(strings.Count(text, w))
	}
	return vec
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.Lock()
	e.batched = append(e.batched, texts...)
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int    { return len(e.vocab) }
func (e *keywordEmbedder) ModelName() string { return "keyword" }

func docs() []repository.Document {
	return []repository.Document{
		{ID: "a", Title: "Printer", Content: "spooler", Score: 9},
		{ID: "b", Title: "VPN", Content: "vpn tunnel drops", Score: 1},
		{ID: "c", Title: "Mail", Content: "outlook", Score: 5},
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestEmbeddingReranker_SortsBySimilarity(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"vpn", "printer", "outlook"}}
	r := NewEmbeddingReranker(emb)

	input := docs()
	out, err := r.Rerank(context.Background(), "vpn", input)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "b", out[0].ID)
	assert.InDelta(t, 1.0, out[0].Score, 1e-9)
	// store scores are discarded
	for _, doc := range out[1:] {
		assert.Equal(t, 0.0, doc.Score)
	}
	// zero-score ties keep input order
	assert.Equal(t, "a", out[1].ID)
	assert.Equal(t, "c", out[2].ID)

	// input untouched
	assert.Equal(t, 9.0, input[0].Score)
	assert.Equal(t, "Printer spooler", emb.batched[0])
}

func TestEmbeddingReranker_EmptyInput(t *testing.T) {
	r := NewEmbeddingReranker(nil)
	out, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEmbeddingReranker_NoEmbedder(t *testing.T) {
	r := NewEmbeddingReranker(nil)
	_, err := r.Rerank(context.Background(), "q", docs())
	assert.ErrorIs(t, err, upstream.ErrUnavailable)
}

func TestEmbeddingReranker_EmbedderFailure(t *testing.T) {
	r := NewEmbeddingReranker(&keywordEmbedder{err: errors.New("model not loaded")})
	_, err := r.Rerank(context.Background(), "q", docs())
	assert.ErrorIs(t, err, upstream.ErrUnavailable)
}

func TestEmbeddingReranker_UsesCache(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"vpn", "printer", "outlook"}}
	cache := vectorstore.NewMemoryCache()
	r := NewEmbeddingReranker(emb, WithCache(cache))
	ctx := context.Background()

	_, err := r.Rerank(ctx, "vpn", docs())
	require.NoError(t, err)
	assert.Len(t, emb.batched, 3)
	assert.Equal(t, 3, cache.Len())

	// second call only embeds the changed document
	changed := docs()
	changed[2].Content = "outlook vpn"
	out, err := r.Rerank(ctx, "vpn", changed)
	require.NoError(t, err)
	assert.Len(t, emb.batched, 4)
	assert.Equal(t, "Mail outlook vpn", emb.batched[3])

	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	assert.InDelta(t, 1/math.Sqrt(2), out[1].Score, 1e-6)
}

type failingCache struct{}

func (failingCache) Lookup(ctx context.Context, keys []vectorstore.Key) (map[string][]float32, error) {
	return nil, errors.New("qdrant down")
}

func (failingCache) Store(ctx context.Context, entries []vectorstore.Entry) error {
	return errors.New("qdrant down")
}

func TestEmbeddingReranker_CacheFailureIsIgnored(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"vpn"}}
	r := NewEmbeddingReranker(emb, WithCache(failingCache{}))

	out, err := r.Rerank(context.Background(), "vpn", docs())
	require.NoError(t, err)
	assert.Equal(t, "b", out[0].ID)
}
