// Package memory provides the in-process backing for user histories and frequent queries.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/practice2025/supportai/internal/repository"
)

// Store keeps both cache mappings in process memory.
// Each mapping has its own mutex; entries never expire.
type Store struct {
	historyMu sync.RWMutex
	histories map[string][]repository.QueryRecord

	frequentMu sync.RWMutex
	frequent   map[string]*repository.FrequentQuery
	nextSeq    uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		histories: make(map[string][]repository.QueryRecord),
		frequent:  make(map[string]*repository.FrequentQuery),
	}
}

// Load replaces the store contents with previously persisted data
func (s *Store) Load(histories map[string][]repository.QueryRecord, frequent []repository.FrequentQuery) {
	s.historyMu.Lock()
	s.histories = make(map[string][]repository.QueryRecord, len(histories))
	for userID, records := range histories {
		s.histories[userID] = cloneRecords(records)
	}
	s.historyMu.Unlock()

	s.frequentMu.Lock()
	defer s.frequentMu.Unlock()
	s.frequent = make(map[string]*repository.FrequentQuery, len(frequent))
	s.nextSeq = 0
	for _, entry := range frequent {
		e := cloneEntry(entry)
		s.frequent[e.Query] = &e
		if e.Seq >= s.nextSeq {
			s.nextSeq = e.Seq + 1
		}
	}
}

// GetHistory returns a copy of the user's records, most recent first
func (s *Store) GetHistory(ctx context.Context, userID string) ([]repository.QueryRecord, error) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	return cloneRecords(s.histories[userID]), nil
}

// PrependHistory inserts rec as the most recent record, displacing the oldest beyond limit
func (s *Store) PrependHistory(ctx context.Context, userID string, rec repository.QueryRecord, limit int) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	rec.Sources = repository.CloneSources(rec.Sources)
	s.histories[userID] = repository.PrependRecord(s.histories[userID], rec, limit)
	return nil
}

// Histories returns a deep copy of every user history
func (s *Store) Histories() map[string][]repository.QueryRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make(map[string][]repository.QueryRecord, len(s.histories))
	for userID, records := range s.histories {
		out[userID] = cloneRecords(records)
	}
	return out
}

// GetFrequentQuery returns a copy of the entry for key
func (s *Store) GetFrequentQuery(ctx context.Context, key string) (*repository.FrequentQuery, error) {
	s.frequentMu.RLock()
	defer s.frequentMu.RUnlock()
	entry, ok := s.frequent[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e := cloneEntry(*entry)
	return &e, nil
}

// ListFrequentQueries returns copies of all entries in insertion order
func (s *Store) ListFrequentQueries(ctx context.Context) ([]repository.FrequentQuery, error) {
	s.frequentMu.RLock()
	defer s.frequentMu.RUnlock()
	out := make([]repository.FrequentQuery, 0, len(s.frequent))
	for _, entry := range s.frequent {
		out = append(out, cloneEntry(*entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// IncrementFrequentQuery records one occurrence of key
func (s *Store) IncrementFrequentQuery(ctx context.Context, key, answer string, sources []repository.Source) (*repository.FrequentQuery, error) {
	s.frequentMu.Lock()
	defer s.frequentMu.Unlock()

	entry, ok := s.frequent[key]
	if !ok {
		entry = &repository.FrequentQuery{
			Query:   key,
			Sources: []repository.Source{},
			Seq:     s.nextSeq,
		}
		s.nextSeq++
		s.frequent[key] = entry
	}
	entry.Apply(answer, sources)

	e := cloneEntry(*entry)
	return &e, nil
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}

func cloneRecords(records []repository.QueryRecord) []repository.QueryRecord {
	out := make([]repository.QueryRecord, len(records))
	for i, rec := range records {
		rec.Sources = repository.CloneSources(rec.Sources)
		out[i] = rec
	}
	return out
}

func cloneEntry(entry repository.FrequentQuery) repository.FrequentQuery {
	entry.Sources = repository.CloneSources(entry.Sources)
	return entry
}

var _ repository.CacheRepository = (*Store)(nil)
