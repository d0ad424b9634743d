package querycache

import (
	"sort"
	"strings"
	"sync"

	"github.com/practice2025/supportai/internal/repository"
)

// wordIndex mirrors the frequent-query keys in insertion order with an
// inverted word index for overlap scoring.
type wordIndex struct {
	mu       sync.RWMutex
	keys     []indexedKey
	position map[string]int
	postings map[string][]int
}

type indexedKey struct {
	key   string
	words int
	seq   uint64
}

func newWordIndex() *wordIndex {
	return &wordIndex{
		position: make(map[string]int),
		postings: make(map[string][]int),
	}
}

// reset rebuilds the index from entries
func (idx *wordIndex) reset(entries []repository.FrequentQuery) {
	sorted := make([]repository.FrequentQuery, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.keys = idx.keys[:0]
	idx.position = make(map[string]int, len(sorted))
	idx.postings = make(map[string][]int)
	for _, e := range sorted {
		idx.addLocked(e.Query, e.Seq)
	}
}

// add appends key if it is not indexed yet
func (idx *wordIndex) add(key string, seq uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addLocked(key, seq)
}

func (idx *wordIndex) addLocked(key string, seq uint64) {
	if _, ok := idx.position[key]; ok {
		return
	}
	pos := len(idx.keys)
	words := wordSet(key)
	idx.keys = append(idx.keys, indexedKey{key: key, words: len(words), seq: seq})
	idx.position[key] = pos
	for w := range words {
		idx.postings[w] = append(idx.postings[w], pos)
	}
}

func (idx *wordIndex) len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.keys)
}

// substring returns the first key, in insertion order, that contains q or is contained in it
func (idx *wordIndex) substring(q string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, k := range idx.keys {
		if strings.Contains(k.key, q) || strings.Contains(q, k.key) {
			return k.key, true
		}
	}
	return "", false
}

// bestOverlap returns the key with the highest word overlap above threshold.
// Overlap is |common| / max(|query words|, |key words|); earlier keys win ties.
func (idx *wordIndex) bestOverlap(q string, threshold float64) (string, float64, bool) {
	qWords := wordSet(q)
	if len(qWords) == 0 {
		return "", 0, false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	common := make(map[int]int)
	for w := range qWords {
		for _, pos := range idx.postings[w] {
			common[pos]++
		}
	}

	candidates := make([]int, 0, len(common))
	for pos := range common {
		candidates = append(candidates, pos)
	}
	sort.Ints(candidates)

	best, bestScore := -1, 0.0
	for _, pos := range candidates {
		denom := max(len(qWords), idx.keys[pos].words)
		score := float64(common[pos]) / float64(denom)
		if score > threshold && score > bestScore {
			best, bestScore = pos, score
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return idx.keys[best].key, bestScore, true
}
