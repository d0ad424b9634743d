package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// DefaultCollection holds document embeddings
const DefaultCollection = "doc_embeddings"

const (
	payloadDocID    = "doc_id"
	payloadTextHash = "text_hash"
)

// QdrantCache implements EmbeddingCache on a Qdrant collection
type QdrantCache struct {
	client     *qdrant.Client
	collection string

	mu    sync.Mutex
	ready bool
}

// NewQdrantCache creates a new Qdrant embedding cache.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantCache(url, collection string) (*QdrantCache, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}
	return &QdrantCache{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection
func (c *QdrantCache) Close() error {
	return c.client.Close()
}

// ensureCollection creates the collection on first write
func (c *QdrantCache) ensureCollection(ctx context.Context, dimension int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		err := c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}
	c.ready = true
	return nil
}

// Lookup implements EmbeddingCache
func (c *QdrantCache) Lookup(ctx context.Context, keys []Key) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return found, nil
	}

	hashes := make(map[string]string, len(keys))
	ids := make([]*qdrant.PointId, 0, len(keys))
	for _, key := range keys {
		hashes[key.DocID] = TextHash(key.Text)
		ids = append(ids, qdrant.NewIDUUID(PointID(key.DocID)))
	}

	points, err := c.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: c.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}

	for _, point := range points {
		payload := point.GetPayload()
		docID := payload[payloadDocID].GetStringValue()
		want, ok := hashes[docID]
		if !ok || payload[payloadTextHash].GetStringValue() != want {
			continue
		}
		if vec := point.GetVectors().GetVector().GetData(); len(vec) > 0 {
			found[docID] = vec
		}
	}
	return found, nil
}

// Store implements EmbeddingCache
func (c *QdrantCache) Store(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(e.DocID)),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: map[string]*qdrant.Value{
				payloadDocID:    qdrant.NewValueString(e.DocID),
				payloadTextHash: qdrant.NewValueString(TextHash(e.Text)),
			},
		}
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

var _ EmbeddingCache = (*QdrantCache)(nil)
