package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	esv8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/practice2025/supportai/internal/mediawiki"
	"github.com/practice2025/supportai/internal/repository"
)

// DefaultIndex is the index holding support solutions
const DefaultIndex = "support_solutions"

// Field boosts shared by both query shapes
const (
	titleBoost   = 2.0
	contentBoost = 1.0
	tagsBoost    = 1.5
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":      {"type": "keyword"},
      "title":   {"type": "text"},
      "content": {"type": "text"},
      "tags":    {"type": "text"},
      "url":     {"type": "keyword"}
    }
  }
}`

// ElasticsearchConfig configures the Elasticsearch searcher
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Transport http.RoundTripper
}

// Elasticsearch searches an Elasticsearch/OpenSearch compatible index
type Elasticsearch struct {
	client *esv8.Client
	index  string
}

// NewElasticsearch creates a searcher. It does not contact the cluster.
func NewElasticsearch(cfg ElasticsearchConfig) (*Elasticsearch, error) {
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}

	client, err := esv8.NewClient(esv8.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Elasticsearch{client: client, index: index}, nil
}

// Name implements Searcher
func (e *Elasticsearch) Name() string {
	return "elasticsearch"
}

// Ping checks that the cluster is reachable
func (e *Elasticsearch) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Search implements Searcher
func (e *Elasticsearch) Search(ctx context.Context, query string, size int, exactMatch bool) ([]repository.Document, error) {
	body, err := json.Marshal(buildQuery(query, size, exactMatch))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("elasticsearch search failed: %s: %s", res.Status(), string(msg))
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]repository.Document, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		docs = append(docs, hit.toDocument())
	}
	return docs, nil
}

// EnsureIndex creates the index when it does not exist yet
func (e *Elasticsearch) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch create index failed: %s", res.Status())
	}
	return nil
}

// IndexDocuments writes docs into the index, keyed by document id
func (e *Elasticsearch) IndexDocuments(ctx context.Context, docs []repository.Document) error {
	for i, doc := range docs {
		body, err := json.Marshal(indexedDocument{
			ID:      doc.ID,
			Title:   doc.Title,
			Content: doc.Content,
			URL:     doc.URL,
			Tags:    doc.Tags,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}

		opts := []func(*esapi.IndexRequest){
			e.client.Index.WithContext(ctx),
			e.client.Index.WithDocumentID(doc.ID),
		}
		if i == len(docs)-1 {
			opts = append(opts, e.client.Index.WithRefresh("true"))
		}

		res, err := e.client.Index(e.index, bytes.NewReader(body), opts...)
		if err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch index document %s failed: %s", doc.ID, res.Status())
		}
	}
	return nil
}

func buildQuery(query string, size int, exactMatch bool) map[string]any {
	if exactMatch {
		return map[string]any{
			"query": map[string]any{
				"multi_match": map[string]any{
					"query":  query,
					"fields": []string{"title^2", "content", "tags^1.5"},
					"type":   "best_fields",
				},
			},
			"highlight": map[string]any{
				"fields": map[string]any{
					"content": map[string]any{},
				},
			},
			"size": size,
		}
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{
					matchClause("title", query, titleBoost),
					matchClause("content", query, contentBoost),
					matchClause("tags", query, tagsBoost),
				},
			},
		},
		"size": size,
	}
}

func matchClause(field, query string, boost float64) map[string]any {
	return map[string]any{
		"match": map[string]any{
			field: map[string]any{
				"query": query,
				"boost": boost,
			},
		},
	}
}

type indexedDocument struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	URL     string   `json:"url,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		ID      string   `json:"id"`
		Title   string   `json:"title"`
		Content string   `json:"content"`
		URL     string   `json:"url"`
		Tags    []string `json:"tags"`
	} `json:"_source"`
	Highlight struct {
		Content []string `json:"content"`
	} `json:"highlight"`
}

func (h searchHit) toDocument() repository.Document {
	id := h.Source.ID
	if id == "" {
		id = h.ID
	}
	title := h.Source.Title
	if title == "" {
		title = "Untitled"
	}
	var excerpt string
	if len(h.Highlight.Content) > 0 {
		excerpt = mediawiki.StripHTML(h.Highlight.Content[0])
	}
	return repository.Document{
		ID:      id,
		Title:   title,
		Content: h.Source.Content,
		Score:   h.Score,
		Source:  SourceOpenSearch,
		URL:     h.Source.URL,
		Tags:    h.Source.Tags,
		Excerpt: excerpt,
	}
}

var _ Searcher = (*Elasticsearch)(nil)
