package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID_Stable(t *testing.T) {
	a := PointID("mediawiki_12")
	assert.Equal(t, a, PointID("mediawiki_12"))
	assert.NotEqual(t, a, PointID("mediawiki_13"))

	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestMemoryCache_HashMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Store(ctx, []Entry{{DocID: "doc-1", Text: "old text", Vector: []float32{1, 2}}}))

	found, err := c.Lookup(ctx, []Key{{DocID: "doc-1", Text: "old text"}, {DocID: "doc-2", Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"doc-1": {1, 2}}, found)

	found, err = c.Lookup(ctx, []Key{{DocID: "doc-1", Text: "new text"}})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryCache_StoreCopiesVector(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	vec := []float32{1, 2}
	require.NoError(t, c.Store(ctx, []Entry{{DocID: "d", Text: "t", Vector: vec}}))
	vec[0] = 9

	found, err := c.Lookup(ctx, []Key{{DocID: "d", Text: "t"}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, found["d"])
	assert.Equal(t, 1, c.Len())
}

// Runs only against a real Qdrant: TEST_QDRANT_URL=localhost:6334 go test ./...
func TestQdrantCache_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_QDRANT_URL")
	if url == "" {
		t.Skip("TEST_QDRANT_URL not set")
	}
	ctx := context.Background()

	c, err := NewQdrantCache(url, "test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		c.client.DeleteCollection(ctx, c.collection)
		c.Close()
	})

	require.NoError(t, c.Store(ctx, []Entry{{DocID: "doc-1", Text: "hello", Vector: []float32{0.1, 0.2, 0.3}}}))

	found, err := c.Lookup(ctx, []Key{{DocID: "doc-1", Text: "hello"}})
	require.NoError(t, err)
	assert.Len(t, found["doc-1"], 3)

	found, err = c.Lookup(ctx, []Key{{DocID: "doc-1", Text: "changed"}})
	require.NoError(t, err)
	assert.Empty(t, found)
}
