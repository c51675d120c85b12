package memory

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/memvault/internal/compress"
)

// SearchIndex is an in-memory inverted index over slot content: a postings
// map from word to the slots containing it, plus per-slot word frequency
// tables for TF-IDF scoring. The index is derived state, rebuildable from
// the on-disk slots at any time.
//
// Mutations are serialized by the storage layer's write lock; the internal
// RWMutex additionally keeps concurrent searches safe against an in-flight
// re-index.
type SearchIndex struct {
	mu             sync.RWMutex
	wordToSlots    map[string]map[string]struct{}
	slotWordCounts map[string]map[string]int
	slotTotalWords map[string]int
	compressor     *compress.Compressor
}

// NewSearchIndex creates an empty index.
func NewSearchIndex(c *compress.Compressor) *SearchIndex {
	if c == nil {
		c = compress.NewCompressor(0)
	}
	return &SearchIndex{
		wordToSlots:    make(map[string]map[string]struct{}),
		slotWordCounts: make(map[string]map[string]int),
		slotTotalWords: make(map[string]int),
		compressor:     c,
	}
}

// AddSlot (re-)indexes a slot. Any prior indexing for the slot name is
// removed first, so repeated calls with unchanged content are idempotent.
func (idx *SearchIndex) AddSlot(slot *MemorySlot) {
	text := idx.searchableText(slot)
	words := Tokenize(text, false)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(slot.SlotName)

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	idx.slotWordCounts[slot.SlotName] = counts
	idx.slotTotalWords[slot.SlotName] = len(words)

	for w := range counts {
		postings, ok := idx.wordToSlots[w]
		if !ok {
			postings = make(map[string]struct{})
			idx.wordToSlots[w] = postings
		}
		postings[slot.SlotName] = struct{}{}
	}
}

// RemoveSlot removes all index state for a slot name. Unknown names are a no-op.
func (idx *SearchIndex) RemoveSlot(slotName string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(slotName)
}

func (idx *SearchIndex) removeLocked(slotName string) {
	counts, ok := idx.slotWordCounts[slotName]
	if !ok {
		return
	}
	for w := range counts {
		if postings, ok := idx.wordToSlots[w]; ok {
			delete(postings, slotName)
			if len(postings) == 0 {
				delete(idx.wordToSlots, w)
			}
		}
	}
	delete(idx.slotWordCounts, slotName)
	delete(idx.slotTotalWords, slotName)
}

// SlotCount returns the number of indexed slots.
func (idx *SearchIndex) SlotCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.slotTotalWords)
}

// Contains reports whether a slot name is currently indexed.
func (idx *SearchIndex) Contains(slotName string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.slotTotalWords[slotName]
	return ok
}

// Search returns relevance scores in [0,1] keyed by slot name. An empty
// query and an invalid regex both yield an empty result, never an error.
func (idx *SearchIndex) Search(query string, caseSensitive, useRegex bool) map[string]float64 {
	if strings.TrimSpace(query) == "" {
		return map[string]float64{}
	}
	if useRegex {
		return idx.searchRegex(query, caseSensitive)
	}
	return idx.searchText(query, caseSensitive)
}

func (idx *SearchIndex) searchText(query string, caseSensitive bool) map[string]float64 {
	// Indexing always lowercases, so case-sensitive queries only match
	// terms that are lowercase to begin with.
	words := Tokenize(query, caseSensitive)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := make(map[string]struct{})
	for _, w := range words {
		for slot := range idx.wordToSlots[w] {
			candidates[slot] = struct{}{}
		}
	}

	scores := make(map[string]float64, len(candidates))
	for slot := range candidates {
		if s := idx.scoreLocked(words, slot); s > 0 {
			scores[slot] = s
		}
	}
	return scores
}

// scoreLocked computes the TF-IDF score for one slot against query words.
// When a term appears in every indexed slot its idf is zero; the term then
// contributes bare tf so a single-document corpus still scores above zero.
func (idx *SearchIndex) scoreLocked(words []string, slotName string) float64 {
	counts := idx.slotWordCounts[slotName]
	total := idx.slotTotalWords[slotName]
	if total == 0 {
		return 0
	}

	totalSlots := len(idx.slotTotalWords)
	score := 0.0
	for _, w := range words {
		n, ok := counts[w]
		if !ok {
			continue
		}
		tf := float64(n) / float64(total)
		df := len(idx.wordToSlots[w])
		if df == 0 {
			score += tf
			continue
		}
		idf := math.Log(float64(totalSlots) / float64(df))
		if idf == 0 {
			score += tf
		} else {
			score += tf * idf
		}
	}

	return math.Min(1.0, score)
}

// searchRegex matches the pattern against each slot's indexed vocabulary.
// Score is a coarse match-count heuristic, capped at 1.0.
func (idx *SearchIndex) searchRegex(pattern string, caseSensitive bool) map[string]float64 {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Debug("invalid search regex", "pattern", pattern, "error", err)
		return map[string]float64{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[string]float64)
	for slot, counts := range idx.slotWordCounts {
		words := make([]string, 0, len(counts))
		for w := range counts {
			words = append(words, w)
		}
		sort.Strings(words)

		matches := re.FindAllString(strings.Join(words, " "), -1)
		if len(matches) == 0 {
			continue
		}
		scores[slot] = math.Min(1.0, float64(len(matches))/10.0)
	}
	return scores
}

// searchableText assembles the text a slot is indexed under: name,
// description, tags, group path, and entry contents joined by spaces.
// An entry whose decompression fails is skipped with a warning rather
// than failing the whole re-index.
func (idx *SearchIndex) searchableText(slot *MemorySlot) string {
	parts := []string{slot.SlotName, slot.Description}
	parts = append(parts, slot.Tags...)
	if slot.GroupPath != "" {
		parts = append(parts, slot.GroupPath)
	}
	for i := range slot.Entries {
		text, err := idx.compressor.DecompressContent(slot.Entries[i].Content, slot.Entries[i].Compression)
		if err != nil {
			slog.Warn("skipping unreadable entry during indexing",
				"slot", slot.SlotName, "entry", i, "error", err)
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
