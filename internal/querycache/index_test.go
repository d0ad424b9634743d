package querycache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/practice2025/supportai/internal/repository"
)

// linearOverlap is the straightforward scan over all keys in insertion order
func linearOverlap(keys []string, q string, threshold float64) (string, bool) {
	qWords := wordSet(q)
	best, bestScore := "", 0.0
	for _, k := range keys {
		kWords := wordSet(k)
		common := 0
		for w := range qWords {
			if _, ok := kWords[w]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}
		score := float64(common) / float64(max(len(qWords), len(kWords)))
		if score > threshold && score > bestScore {
			best, bestScore = k, score
		}
	}
	return best, best != ""
}

func TestWordIndex_MatchesLinearScan(t *testing.T) {
	keys := []string{
		"printer not working",
		"printer not printing at all",
		"vpn drops every hour",
		"vpn drops",
		"reset password",
		"reset password reset",
		"outlook crashes on start",
		"outlook start slow",
		"wifi slow",
		"slow wifi in office",
	}
	entries := make([]repository.FrequentQuery, len(keys))
	for i, k := range keys {
		// out of order on purpose; the index sorts by Seq
		entries[len(keys)-1-i] = repository.FrequentQuery{Query: k, Seq: uint64(i + 1)}
	}

	idx := newWordIndex()
	idx.reset(entries)

	queries := []string{
		"printer working", "printer not", "vpn drops hour", "drops vpn",
		"reset my password", "password reset", "outlook start", "slow wifi office",
		"wifi", "nothing matches here", "start outlook crashes", "in office wifi slow",
	}
	for _, threshold := range []float64{0, 0.5, OverlapThreshold} {
		for _, q := range queries {
			t.Run(fmt.Sprintf("%s@%v", q, threshold), func(t *testing.T) {
				want, wantOK := linearOverlap(keys, q, threshold)
				got, _, gotOK := idx.bestOverlap(q, threshold)
				assert.Equal(t, wantOK, gotOK)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestWordIndex_AddIsIdempotent(t *testing.T) {
	idx := newWordIndex()
	idx.add("a b", 1)
	idx.add("a b", 1)
	idx.add("b c", 2)
	assert.Equal(t, 2, idx.len())
	assert.Equal(t, []int{0, 1}, idx.postings["b"])

	key, ok := idx.substring("b")
	assert.True(t, ok)
	assert.Equal(t, "a b", key)
}
