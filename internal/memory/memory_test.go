package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practice2025/supportai/internal/repository"
)

func TestStore_HistoryBound(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 25; i++ {
		err := s.PrependHistory(ctx, "u1", repository.QueryRecord{Query: fmt.Sprintf("q%d", i)}, repository.DefaultHistoryLimit)
		require.NoError(t, err)
	}

	history, err := s.GetHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 20)
	assert.Equal(t, "q24", history[0].Query)
	assert.Equal(t, "q5", history[19].Query)
}

func TestStore_UnknownUserHasEmptyHistory(t *testing.T) {
	history, err := NewStore().GetHistory(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_IncrementFrequentQuery(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sources := []repository.Source{{Title: "Printer", ID: "doc-1", Score: 2}}

	entry, err := s.IncrementFrequentQuery(ctx, "printer jam", "first", sources)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Count)
	assert.Equal(t, "first", entry.LastResponse)

	// Empty sources keep the previous ones
	entry, err = s.IncrementFrequentQuery(ctx, "printer jam", "second", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Count)
	assert.Equal(t, "second", entry.LastResponse)
	assert.Equal(t, sources, entry.Sources)

	_, err = s.GetFrequentQuery(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, key := range []string{"c", "a", "b", "a"} {
		_, err := s.IncrementFrequentQuery(ctx, key, "x", nil)
		require.NoError(t, err)
	}

	entries, err := s.ListFrequentQueries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{entries[0].Query, entries[1].Query, entries[2].Query})
}

func TestStore_ConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementFrequentQuery(ctx, "same query", "answer", nil)
		}()
	}
	wg.Wait()

	entry, err := s.GetFrequentQuery(ctx, "same query")
	require.NoError(t, err)
	assert.Equal(t, 50, entry.Count)
}

func TestStore_LoadRestoresSequence(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Load(nil, []repository.FrequentQuery{
		{Query: "old", Count: 4, Seq: 7},
	})

	entry, err := s.IncrementFrequentQuery(ctx, "new", "a", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), entry.Seq)
}
