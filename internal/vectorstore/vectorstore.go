// Package vectorstore caches document embeddings so reranking does not re-embed unchanged documents.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// Key identifies the text embedded for a document
type Key struct {
	DocID string
	Text  string
}

// Entry is an embedding to be cached
type Entry struct {
	DocID  string
	Text   string
	Vector []float32
}

// EmbeddingCache stores document embeddings keyed by document id.
// A cached vector is only returned while the document text is unchanged.
type EmbeddingCache interface {
	// Lookup returns the cached vectors for keys whose text hash matches, keyed by DocID.
	Lookup(ctx context.Context, keys []Key) (map[string][]float32, error)

	// Store caches entries, replacing any previous vector of the same document.
	Store(ctx context.Context, entries []Entry) error
}

// TextHash returns the hex sha256 of text
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// PointID derives a stable UUID for a document id
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

type memoryEntry struct {
	hash   string
	vector []float32
}

// MemoryCache is an in-process EmbeddingCache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Lookup implements EmbeddingCache
func (c *MemoryCache) Lookup(ctx context.Context, keys []Key) (map[string][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make(map[string][]float32, len(keys))
	for _, key := range keys {
		entry, ok := c.entries[key.DocID]
		if ok && entry.hash == TextHash(key.Text) {
			found[key.DocID] = entry.vector
		}
	}
	return found, nil
}

// Store implements EmbeddingCache
func (c *MemoryCache) Store(ctx context.Context, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		c.entries[e.DocID] = memoryEntry{hash: TextHash(e.Text), vector: vec}
	}
	return nil
}

// Len returns the number of cached documents
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ EmbeddingCache = (*MemoryCache)(nil)
