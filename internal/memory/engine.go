package memory

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/memvault/internal/compress"
)

const snippetLen = 150

// entryBoost nudges entry-level matches above slot-level matches of the
// same base score.
const entryBoost = 1.1

// SearchEngine wraps a SearchIndex with a slot cache and turns raw index
// scores into filtered, snippeted, ranked results. The cache mirrors the
// index: whoever adds or removes a slot updates both through this type.
type SearchEngine struct {
	index      *SearchIndex
	compressor *compress.Compressor

	mu    sync.RWMutex
	slots map[string]*MemorySlot
}

// NewSearchEngine creates an engine backed by a fresh index.
func NewSearchEngine(c *compress.Compressor) *SearchEngine {
	if c == nil {
		c = compress.NewCompressor(0)
	}
	return &SearchEngine{
		index:      NewSearchIndex(c),
		compressor: c,
		slots:      make(map[string]*MemorySlot),
	}
}

// Index exposes the underlying index, mainly for tests and stats.
func (e *SearchEngine) Index() *SearchIndex { return e.index }

// AddSlot mirrors the slot into both the cache and the index.
func (e *SearchEngine) AddSlot(slot *MemorySlot) {
	e.mu.Lock()
	e.slots[slot.SlotName] = slot
	e.mu.Unlock()
	e.index.AddSlot(slot)
}

// RemoveSlot drops the slot from both the cache and the index.
func (e *SearchEngine) RemoveSlot(slotName string) {
	e.mu.Lock()
	delete(e.slots, slotName)
	e.mu.Unlock()
	e.index.RemoveSlot(slotName)
}

// SlotCount returns the number of cached slots.
func (e *SearchEngine) SlotCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.slots)
}

func (e *SearchEngine) slot(name string) (*MemorySlot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.slots[name]
	return s, ok
}

// Search runs the query against the index, applies post-filters, and
// returns ranked results truncated to the query's limit.
func (e *SearchEngine) Search(query SearchQuery) []SearchResult {
	scores := e.index.Search(query.Query, query.CaseSensitive, query.UseRegex)

	var results []SearchResult
	for slotName, score := range scores {
		slot, ok := e.slot(slotName)
		if !ok {
			// Stale index reference; the next re-index heals it.
			continue
		}
		if !e.passesFilters(slot, &query) {
			continue
		}
		results = append(results, e.buildResults(slot, &query, score)...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if limit := query.Limit(); len(results) > limit {
		results = results[:limit]
	}
	return results
}

// passesFilters applies the post-index filters in order: include/exclude
// tags, include/exclude groups, date range, content types. All must pass.
func (e *SearchEngine) passesFilters(slot *MemorySlot, q *SearchQuery) bool {
	if len(q.IncludeTags) > 0 && !slot.HasAnyTag(q.IncludeTags) {
		return false
	}
	if len(q.ExcludeTags) > 0 && slot.HasAnyTag(q.ExcludeTags) {
		return false
	}

	if len(q.IncludeGroups) > 0 {
		found := false
		for _, g := range q.IncludeGroups {
			if strings.Contains(slot.GroupPath, g) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, g := range q.ExcludeGroups {
		if g != "" && strings.Contains(slot.GroupPath, g) {
			return false
		}
	}

	if q.DateFrom != nil || q.DateTo != nil {
		inRange := false
		for i := range slot.Entries {
			ts := slot.Entries[i].Timestamp
			if q.DateFrom != nil && ts.Before(*q.DateFrom) {
				continue
			}
			if q.DateTo != nil && ts.After(*q.DateTo) {
				continue
			}
			inRange = true
			break
		}
		if !inRange {
			return false
		}
	}

	if len(q.ContentTypes) > 0 {
		found := false
		for i := range slot.Entries {
			if typeAllowed(slot.Entries[i].Type, q.ContentTypes) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func typeAllowed(entryType string, allowed []string) bool {
	for _, t := range allowed {
		if t == entryType {
			return true
		}
	}
	return false
}

// buildResults produces zero or more results for a slot that passed the
// filters: at most one slot-level result when the slot's own metadata text
// contains the query, plus one boosted result per matching entry.
func (e *SearchEngine) buildResults(slot *MemorySlot, q *SearchQuery, score float64) []SearchResult {
	var results []SearchResult

	needle := q.Query
	metaText := strings.Join(append([]string{slot.SlotName, slot.Description, slot.GroupPath}, slot.Tags...), " ")
	haystack := metaText
	if !q.CaseSensitive {
		needle = strings.ToLower(needle)
		haystack = strings.ToLower(metaText)
	}

	if pos := strings.Index(haystack, needle); needle != "" && pos >= 0 {
		results = append(results, SearchResult{
			SlotName:       slot.SlotName,
			RelevanceScore: score,
			Snippet:        makeSnippet(metaText, pos, len(needle)),
			MatchType:      metaMatchType(slot, needle, q.CaseSensitive),
			Timestamp:      slot.UpdatedAt,
			Tags:           slot.Tags,
			GroupPath:      slot.GroupPath,
		})
	}

	for i := range slot.Entries {
		entry := &slot.Entries[i]
		if len(q.ContentTypes) > 0 && !typeAllowed(entry.Type, q.ContentTypes) {
			continue
		}

		text, err := e.compressor.DecompressContent(entry.Content, entry.Compression)
		if err != nil {
			slog.Warn("skipping unreadable entry during search",
				"slot", slot.SlotName, "entry", i, "error", err)
			continue
		}

		entryHaystack := text
		if !q.CaseSensitive {
			entryHaystack = strings.ToLower(text)
		}
		pos := strings.Index(entryHaystack, needle)
		if needle == "" || pos < 0 {
			continue
		}

		idx := i
		results = append(results, SearchResult{
			SlotName:       slot.SlotName,
			EntryIndex:     &idx,
			RelevanceScore: math.Min(1.0, score*entryBoost),
			Snippet:        makeSnippet(text, pos, len(needle)),
			MatchType:      MatchEntry,
			Timestamp:      entry.Timestamp,
			Tags:           slot.Tags,
			GroupPath:      slot.GroupPath,
		})
	}

	return results
}

// metaMatchType classifies where in the slot metadata the query matched.
func metaMatchType(slot *MemorySlot, needle string, caseSensitive bool) string {
	contains := func(s string) bool {
		if !caseSensitive {
			s = strings.ToLower(s)
		}
		return strings.Contains(s, needle)
	}
	for _, t := range slot.Tags {
		if contains(t) {
			return MatchTag
		}
	}
	if slot.GroupPath != "" && contains(slot.GroupPath) {
		return MatchGroup
	}
	return MatchSlot
}

// makeSnippet extracts ~150 chars of context around a match, ellipsis-padded
// on whichever sides were truncated.
func makeSnippet(text string, pos, matchLen int) string {
	if len(text) <= snippetLen {
		return text
	}

	context := (snippetLen - matchLen) / 2
	start := pos - context
	if start < 0 {
		start = 0
	}
	end := start + snippetLen
	if end > len(text) {
		end = len(text)
		if start = end - snippetLen; start < 0 {
			start = 0
		}
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet = snippet + "..."
	}
	return snippet
}

// Boolean operators for SearchBoolean.
const (
	BoolAnd = "AND"
	BoolOr  = "OR"
)

// SearchBoolean combines literal sub-queries: AND intersects per-term
// matches with averaged scores, OR unions them keeping the max score.
func (e *SearchEngine) SearchBoolean(terms []string, operator string, caseSensitive bool) map[string]float64 {
	if len(terms) == 0 {
		return map[string]float64{}
	}

	perTerm := make([]map[string]float64, 0, len(terms))
	for _, t := range terms {
		perTerm = append(perTerm, e.index.Search(t, caseSensitive, false))
	}

	combined := make(map[string]float64)
	switch strings.ToUpper(operator) {
	case BoolAnd:
		sums := make(map[string]float64)
		hits := make(map[string]int)
		for _, scores := range perTerm {
			for slot, s := range scores {
				sums[slot] += s
				hits[slot]++
			}
		}
		for slot, n := range hits {
			if n == len(terms) {
				combined[slot] = sums[slot] / float64(n)
			}
		}
	default: // OR
		for _, scores := range perTerm {
			for slot, s := range scores {
				if s > combined[slot] {
					combined[slot] = s
				}
			}
		}
	}
	return combined
}
