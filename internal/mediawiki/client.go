// Package mediawiki is a minimal client for the MediaWiki action API.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// IDPrefix marks document ids that refer to MediaWiki pages.
	IDPrefix = "mediawiki_"

	// DefaultTimeout bounds every API call.
	DefaultTimeout = 10 * time.Second
)

// Page is a search hit returned by list=search
type Page struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Client talks to a MediaWiki api.php endpoint
type Client struct {
	apiURL string
	client *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Client) {
		m.client = c
	}
}

// NewClient creates a client for apiURL, e.g. http://mediawiki/api.php
func NewClient(apiURL string, opts ...Option) *Client {
	c := &Client{
		apiURL: apiURL,
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Query *struct {
		Search []Page `json:"search"`
	} `json:"query"`
}

type parseResponse struct {
	Parse *struct {
		Text map[string]string `json:"text"`
	} `json:"parse"`
}

// Search runs a full-text search and returns up to limit pages
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Page, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
		"format":   {"json"},
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}
	if resp.Query == nil {
		return []Page{}, nil
	}
	return resp.Query.Search, nil
}

// PageHTML returns the rendered HTML of a page
func (c *Client) PageHTML(ctx context.Context, pageID int) (string, error) {
	params := url.Values{
		"action": {"parse"},
		"pageid": {strconv.Itoa(pageID)},
		"prop":   {"text"},
		"format": {"json"},
	}

	var resp parseResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	if resp.Parse == nil || resp.Parse.Text == nil {
		return "", fmt.Errorf("page %d has no text", pageID)
	}
	text, ok := resp.Parse.Text["*"]
	if !ok {
		return "", fmt.Errorf("page %d has no text", pageID)
	}
	return text, nil
}

// PageURL builds the human-facing URL of a page title
func (c *Client) PageURL(title string) string {
	base := strings.SplitN(c.apiURL, "/api.php", 2)[0]
	return fmt.Sprintf("%s/index.php?title=%s", base, strings.ReplaceAll(title, " ", "_"))
}

// DocumentID returns the document id used for a page
func DocumentID(pageID int) string {
	return IDPrefix + strconv.Itoa(pageID)
}

// ParseDocumentID extracts the page id from a document id
func ParseDocumentID(id string) (int, bool) {
	raw, ok := strings.CutPrefix(id, IDPrefix)
	if !ok {
		return 0, false
	}
	pageID, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return pageID, true
}

func (c *Client) get(ctx context.Context, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mediawiki API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
