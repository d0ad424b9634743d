package docstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/practice2025/supportai/internal/repository"
)

// DefaultCorpus is served when no document store is reachable
var DefaultCorpus = []repository.Document{
	{
		ID:      "mock-1",
		Title:   "Printer not working",
		Content: "If your printer is not printing, check that it is powered on and connected to the network. Restart the print spooler service and clear stuck jobs from the queue. Reinstall the printer driver if the problem persists.",
		Source:  SourceMock,
		Tags:    []string{"printer", "hardware", "printing"},
	},
	{
		ID:      "mock-2",
		Title:   "VPN connection drops",
		Content: "When the VPN connection keeps dropping, make sure the client is up to date and your internet connection is stable. Switch between TCP and UDP in the client settings and contact support if the tunnel still disconnects.",
		Source:  SourceMock,
		Tags:    []string{"vpn", "network", "remote access"},
	},
	{
		ID:      "mock-3",
		Title:   "Password reset",
		Content: "To reset a forgotten password open the self-service portal, enter your login and follow the link sent to your corporate email. The new password must be at least 12 characters long and differ from the previous five.",
		Source:  SourceMock,
		Tags:    []string{"password", "account", "login"},
	},
}

// Mock scores an in-memory corpus by case-insensitive substring matching.
type Mock struct {
	docs []repository.Document
}

// NewMock creates a searcher over docs. A nil corpus selects DefaultCorpus.
func NewMock(docs []repository.Document) *Mock {
	if docs == nil {
		docs = DefaultCorpus
	}
	return &Mock{docs: docs}
}

type corpusFile struct {
	Documents []repository.Document `yaml:"documents"`
}

// LoadCorpus reads a YAML corpus of the form `documents: [{id, title, content, tags, url}]`
func LoadCorpus(path string) ([]repository.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	for i, doc := range file.Documents {
		if doc.ID == "" {
			return nil, fmt.Errorf("corpus document %d has no id", i)
		}
		if doc.Source == "" {
			file.Documents[i].Source = SourceMock
		}
	}
	return file.Documents, nil
}

// Name implements Searcher
func (m *Mock) Name() string {
	return "mock"
}

// Documents returns the corpus
func (m *Mock) Documents() []repository.Document {
	return m.docs
}

// Search implements Searcher. Title matches score 2, content 1 and the first matching tag 1.
func (m *Mock) Search(ctx context.Context, query string, size int, exactMatch bool) ([]repository.Document, error) {
	q := strings.ToLower(query)

	results := make([]repository.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		if score := scoreDocument(doc, q); score > 0 {
			results = append(results, doc.WithScore(score))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if size >= 0 && len(results) > size {
		results = results[:size]
	}
	return results, nil
}

func scoreDocument(doc repository.Document, q string) float64 {
	var score float64
	if strings.Contains(strings.ToLower(doc.Title), q) {
		score += 2
	}
	if strings.Contains(strings.ToLower(doc.Content), q) {
		score++
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score++
			break
		}
	}
	return score
}

var _ Searcher = (*Mock)(nil)
