// Package origin fetches the full text of a document from the system it came from.
package origin

import (
	"context"
	"fmt"

	"github.com/practice2025/supportai/internal/mediawiki"
	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
)

// Fetcher returns the full plain text of a document
type Fetcher interface {
	Fetch(ctx context.Context, doc repository.Document) (string, error)
}

// MediaWikiFetcher renders wiki pages through the parse API.
// Documents whose id does not carry the mediawiki prefix are unavailable.
type MediaWikiFetcher struct {
	client *mediawiki.Client
}

// NewMediaWikiFetcher creates a fetcher backed by client
func NewMediaWikiFetcher(client *mediawiki.Client) *MediaWikiFetcher {
	return &MediaWikiFetcher{client: client}
}

// Fetch implements Fetcher
func (f *MediaWikiFetcher) Fetch(ctx context.Context, doc repository.Document) (string, error) {
	pageID, ok := mediawiki.ParseDocumentID(doc.ID)
	if !ok {
		return "", upstream.Wrap("mediawiki", fmt.Errorf("document %s is not a wiki page", doc.ID))
	}

	html, err := f.client.PageHTML(ctx, pageID)
	if err != nil {
		return "", upstream.Wrap("mediawiki", err)
	}

	text := mediawiki.StripHTML(html)
	if text == "" {
		return "", upstream.Wrap("mediawiki", fmt.Errorf("page %d is empty", pageID))
	}
	return text, nil
}

// NoopFetcher never has origin content
type NoopFetcher struct{}

// Fetch implements Fetcher
func (NoopFetcher) Fetch(ctx context.Context, doc repository.Document) (string, error) {
	return "", upstream.Disabled("origin")
}

var (
	_ Fetcher = (*MediaWikiFetcher)(nil)
	_ Fetcher = NoopFetcher{}
)
