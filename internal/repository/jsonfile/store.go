// Package jsonfile mirrors the in-memory cache mappings to two JSON documents on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/practice2025/supportai/internal/memory"
	"github.com/practice2025/supportai/internal/repository"
)

const (
	// HistoryFile holds user histories keyed by user id.
	HistoryFile = "query_history.json"

	// FrequentQueriesFile holds frequent query entries keyed by normalized query.
	FrequentQueriesFile = "frequent_queries.json"
)

// Store is a write-through file mirror over memory.Store.
// Every mutation rewrites the affected document wholesale.
type Store struct {
	mem          *memory.Store
	historyPath  string
	frequentPath string
	logger       *slog.Logger

	// serialize mutation + file write so the file always reflects the latest state
	historyMu  sync.Mutex
	frequentMu sync.Mutex
}

// Open loads both documents from dir, creating dir if needed.
// Missing files are treated as empty; unreadable ones are logged and ignored.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &Store{
		mem:          memory.NewStore(),
		historyPath:  filepath.Join(dir, HistoryFile),
		frequentPath: filepath.Join(dir, FrequentQueriesFile),
		logger:       logger,
	}

	stored := make(map[string][]storedRecord)
	if err := readJSON(s.historyPath, &stored); err != nil {
		logger.Error("failed to load query history", "path", s.historyPath, "error", err)
		stored = make(map[string][]storedRecord)
	}
	histories := make(map[string][]repository.QueryRecord, len(stored))
	for userID, records := range stored {
		converted := make([]repository.QueryRecord, len(records))
		for i, r := range records {
			converted[i] = r.QueryRecord
			converted[i].Timestamp = r.Timestamp.Time
		}
		histories[userID] = converted
	}

	frequentByKey := make(map[string]repository.FrequentQuery)
	if err := readJSON(s.frequentPath, &frequentByKey); err != nil {
		logger.Error("failed to load frequent queries", "path", s.frequentPath, "error", err)
		frequentByKey = make(map[string]repository.FrequentQuery)
	}
	frequent := make([]repository.FrequentQuery, 0, len(frequentByKey))
	for key, entry := range frequentByKey {
		entry.Query = key
		frequent = append(frequent, entry)
	}

	s.mem.Load(histories, frequent)
	logger.Info("loaded query cache from disk",
		"users", len(histories),
		"frequent_queries", len(frequent),
	)
	return s, nil
}

// GetHistory returns the user's records, most recent first
func (s *Store) GetHistory(ctx context.Context, userID string) ([]repository.QueryRecord, error) {
	return s.mem.GetHistory(ctx, userID)
}

// PrependHistory records rec and rewrites the history document
func (s *Store) PrependHistory(ctx context.Context, userID string, rec repository.QueryRecord, limit int) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	if err := s.mem.PrependHistory(ctx, userID, rec, limit); err != nil {
		return err
	}
	if err := writeJSON(s.historyPath, s.mem.Histories()); err != nil {
		return fmt.Errorf("failed to save query history: %w", err)
	}
	return nil
}

// GetFrequentQuery returns the entry for key or repository.ErrNotFound
func (s *Store) GetFrequentQuery(ctx context.Context, key string) (*repository.FrequentQuery, error) {
	return s.mem.GetFrequentQuery(ctx, key)
}

// ListFrequentQueries returns every entry in insertion order
func (s *Store) ListFrequentQueries(ctx context.Context) ([]repository.FrequentQuery, error) {
	return s.mem.ListFrequentQueries(ctx)
}

// IncrementFrequentQuery records one occurrence and rewrites the frequent query document
func (s *Store) IncrementFrequentQuery(ctx context.Context, key, answer string, sources []repository.Source) (*repository.FrequentQuery, error) {
	s.frequentMu.Lock()
	defer s.frequentMu.Unlock()

	entry, err := s.mem.IncrementFrequentQuery(ctx, key, answer, sources)
	if err != nil {
		return nil, err
	}

	all, err := s.mem.ListFrequentQueries(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]repository.FrequentQuery, len(all))
	for _, e := range all {
		byKey[e.Query] = e
	}
	if err := writeJSON(s.frequentPath, byKey); err != nil {
		return nil, fmt.Errorf("failed to save frequent queries: %w", err)
	}
	return entry, nil
}

// Close is a no-op; every mutation is already on disk
func (s *Store) Close() error {
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// writeJSON replaces path via a temp file and rename
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ repository.CacheRepository = (*Store)(nil)
