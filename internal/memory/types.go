// Package memory provides the slot data model and the in-memory search
// subsystem: a TF-IDF inverted index over slot content plus a query engine
// with tag, group, date, and content-type filtering.
package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/nextlevelbuilder/memvault/internal/compress"
)

// Entry types.
const (
	EntryManualSave  = "manual_save"
	EntryAutoSummary = "auto_summary"
)

// MemoryEntry is one unit of content within a slot. When Compression marks
// the entry as compressed, Content holds base64(gzip(text)) instead of raw
// text. Content is the only field mutated after creation.
type MemoryEntry struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Content     string             `json:"content"`
	Timestamp   time.Time          `json:"timestamp"`
	Compression *compress.Metadata `json:"compression_info,omitempty"`
}

// MemorySlot is a named, mutable document of ordered entries.
// Entry order is insertion order, which is chronological order.
type MemorySlot struct {
	SlotName      string        `json:"slot_name"`
	Description   string        `json:"description,omitempty"`
	Entries       []MemoryEntry `json:"entries"`
	Tags          []string      `json:"tags"`
	GroupPath     string        `json:"group_path,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	IsArchived    bool          `json:"is_archived"`
	ArchivedAt    *time.Time    `json:"archived_at,omitempty"`
	ArchiveReason string        `json:"archive_reason,omitempty"`
}

// HasTag reports whether the slot carries the given tag (case-insensitive).
func (s *MemorySlot) HasTag(tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether at least one of tags is present on the slot.
func (s *MemorySlot) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if s.HasTag(t) {
			return true
		}
	}
	return false
}

// AddTags merges tags into the slot's tag set, lowercased and sorted.
// Returns the number of tags that were actually new.
func (s *MemorySlot) AddTags(tags []string) int {
	added := 0
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || s.HasTag(t) {
			continue
		}
		s.Tags = append(s.Tags, t)
		added++
	}
	sort.Strings(s.Tags)
	return added
}

// RemoveTags drops tags from the slot's tag set. Returns the number removed.
func (s *MemorySlot) RemoveTags(tags []string) int {
	removed := 0
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		for i, have := range s.Tags {
			if have == t {
				s.Tags = append(s.Tags[:i], s.Tags[i+1:]...)
				removed++
				break
			}
		}
	}
	return removed
}

// Touch bumps the slot's updated-at timestamp.
func (s *MemorySlot) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Match types reported on search results.
const (
	MatchSlot  = "slot"
	MatchEntry = "entry"
	MatchTag   = "tag"
	MatchGroup = "group"
)

// SearchQuery is a search request against the engine.
type SearchQuery struct {
	Query         string     `json:"query"`
	IncludeTags   []string   `json:"include_tags,omitempty"`
	ExcludeTags   []string   `json:"exclude_tags,omitempty"`
	IncludeGroups []string   `json:"include_groups,omitempty"`
	ExcludeGroups []string   `json:"exclude_groups,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	ContentTypes  []string   `json:"content_types,omitempty"`
	MaxResults    int        `json:"max_results,omitempty"`
	CaseSensitive bool       `json:"case_sensitive,omitempty"`
	UseRegex      bool       `json:"use_regex,omitempty"`
}

// MaxResultsCap bounds how many results a single query may request.
const MaxResultsCap = 100

// Limit returns the effective result cap for the query, clamped to [1,100].
func (q *SearchQuery) Limit() int {
	if q.MaxResults <= 0 {
		return 10
	}
	if q.MaxResults > MaxResultsCap {
		return MaxResultsCap
	}
	return q.MaxResults
}

// SearchResult is a single ranked match. EntryIndex is nil for slot-level
// matches and set for entry-level matches.
type SearchResult struct {
	SlotName       string    `json:"slot_name"`
	EntryIndex     *int      `json:"entry_index,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
	Snippet        string    `json:"snippet"`
	MatchType      string    `json:"match_type"`
	Timestamp      time.Time `json:"timestamp"`
	Tags           []string  `json:"tags,omitempty"`
	GroupPath      string    `json:"group_path,omitempty"`
}
