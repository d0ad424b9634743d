package docstore

import (
	"context"

	"github.com/practice2025/supportai/internal/mediawiki"
	"github.com/practice2025/supportai/internal/repository"
)

// MediaWiki searches wiki pages through the action API.
// Search scores are not exposed by the API, every hit scores 1.0.
type MediaWiki struct {
	client *mediawiki.Client
}

// NewMediaWiki creates a searcher backed by client
func NewMediaWiki(client *mediawiki.Client) *MediaWiki {
	return &MediaWiki{client: client}
}

// Name implements Searcher
func (m *MediaWiki) Name() string {
	return "mediawiki"
}

// Search implements Searcher. exactMatch has no effect on the MediaWiki query.
func (m *MediaWiki) Search(ctx context.Context, query string, size int, exactMatch bool) ([]repository.Document, error) {
	pages, err := m.client.Search(ctx, query, size)
	if err != nil {
		return nil, err
	}

	docs := make([]repository.Document, 0, len(pages))
	for _, page := range pages {
		docs = append(docs, repository.Document{
			ID:      mediawiki.DocumentID(page.PageID),
			Title:   page.Title,
			Content: mediawiki.StripHTML(page.Snippet),
			Score:   1.0,
			Source:  SourceMediaWiki,
			URL:     m.client.PageURL(page.Title),
		})
	}
	return docs, nil
}

var _ Searcher = (*MediaWiki)(nil)
