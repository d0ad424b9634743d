// Package badger implements the cache repository on an embedded BadgerDB.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/practice2025/supportai/internal/repository"
)

const (
	historyPrefix  = "history/"
	frequentPrefix = "freq/"
	sequenceKey    = "seq/frequent"

	sequenceBandwidth = 100
)

// Store keeps histories and frequent queries as JSON values in BadgerDB.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	// one writer per mapping
	historyMu  sync.Mutex
	frequentMu sync.Mutex
}

// loggerAdapter adapts slog.Logger to badger.Logger.
type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Info(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the database at dir. An empty dir with inMemory set opens a throwaway instance.
func Open(dir string, inMemory bool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &loggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sequence: %w", err)
	}

	return &Store{db: db, seq: seq, logger: logger}, nil
}

// GetHistory returns the user's records, most recent first
func (s *Store) GetHistory(ctx context.Context, userID string) ([]repository.QueryRecord, error) {
	var records []repository.QueryRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, historyKey(userID), &records)
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if records == nil {
		records = []repository.QueryRecord{}
	}
	return records, nil
}

// PrependHistory inserts rec at the head of the user's history
func (s *Store) PrependHistory(ctx context.Context, userID string, rec repository.QueryRecord, limit int) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		var records []repository.QueryRecord
		if err := getJSON(txn, historyKey(userID), &records); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return setJSON(txn, historyKey(userID), repository.PrependRecord(records, rec, limit))
	})
	if err != nil {
		return fmt.Errorf("failed to prepend history: %w", err)
	}
	return nil
}

// GetFrequentQuery returns the entry for key or repository.ErrNotFound
func (s *Store) GetFrequentQuery(ctx context.Context, key string) (*repository.FrequentQuery, error) {
	var entry repository.FrequentQuery
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, frequentKey(key), &entry)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get frequent query: %w", err)
	}
	return &entry, nil
}

// ListFrequentQueries returns every entry ordered by insertion sequence
func (s *Store) ListFrequentQueries(ctx context.Context) ([]repository.FrequentQuery, error) {
	entries := make([]repository.FrequentQuery, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(frequentPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry repository.FrequentQuery
			if err := iter.Item().Value(func(val []byte) error {
				return json.NewDecoder(bytes.NewReader(val)).Decode(&entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list frequent queries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	return entries, nil
}

// IncrementFrequentQuery records one occurrence of key
func (s *Store) IncrementFrequentQuery(ctx context.Context, key, answer string, sources []repository.Source) (*repository.FrequentQuery, error) {
	s.frequentMu.Lock()
	defer s.frequentMu.Unlock()

	var entry repository.FrequentQuery
	err := s.db.Update(func(txn *badger.Txn) error {
		err := getJSON(txn, frequentKey(key), &entry)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			seq, err := s.seq.Next()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
			entry = repository.FrequentQuery{Query: key, Sources: []repository.Source{}, Seq: seq}
		case err != nil:
			return err
		}
		entry.Apply(answer, sources)
		return setJSON(txn, frequentKey(key), entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increment frequent query: %w", err)
	}
	return &entry, nil
}

// Close releases the sequence and closes the database
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("failed to release badger sequence", "error", err)
	}
	return s.db.Close()
}

func historyKey(userID string) []byte {
	return []byte(historyPrefix + userID)
}

func frequentKey(query string) []byte {
	return []byte(frequentPrefix + query)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return repository.ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

var _ repository.CacheRepository = (*Store)(nil)
