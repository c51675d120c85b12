package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/memvault/internal/compress"
)

func testEngine(t *testing.T) *SearchEngine {
	t.Helper()
	e := NewSearchEngine(nil)

	work := testSlot("project-alpha", "quarterly budget forecast and headcount", "work")
	work.GroupPath = "work/planning"
	e.AddSlot(work)

	personal := testSlot("household", "monthly budget for groceries", "personal")
	personal.GroupPath = "home"
	e.AddSlot(personal)

	return e
}

func TestSearchEngine_TagFilters(t *testing.T) {
	e := testEngine(t)

	results := e.Search(SearchQuery{Query: "budget", IncludeTags: []string{"work"}})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	for _, r := range results {
		if r.SlotName != "project-alpha" {
			t.Errorf("include_tags leaked slot %q", r.SlotName)
		}
	}

	results = e.Search(SearchQuery{Query: "budget", ExcludeTags: []string{"work"}})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	for _, r := range results {
		if r.SlotName != "household" {
			t.Errorf("exclude_tags leaked slot %q", r.SlotName)
		}
	}
}

func TestSearchEngine_GroupFilters(t *testing.T) {
	e := testEngine(t)

	results := e.Search(SearchQuery{Query: "budget", IncludeGroups: []string{"work"}})
	for _, r := range results {
		if r.SlotName != "project-alpha" {
			t.Errorf("include_groups leaked slot %q", r.SlotName)
		}
	}
	if len(results) == 0 {
		t.Fatal("no results for include_groups")
	}

	results = e.Search(SearchQuery{Query: "budget", ExcludeGroups: []string{"work"}})
	for _, r := range results {
		if r.SlotName != "household" {
			t.Errorf("exclude_groups leaked slot %q", r.SlotName)
		}
	}
}

func TestSearchEngine_DateRange(t *testing.T) {
	e := NewSearchEngine(nil)

	old := testSlot("archive-notes", "budget retrospective")
	old.Entries[0].Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.AddSlot(old)

	recent := testSlot("fresh-notes", "budget kickoff")
	recent.Entries[0].Timestamp = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	e.AddSlot(recent)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	results := e.Search(SearchQuery{Query: "budget", DateFrom: &from})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	for _, r := range results {
		if r.SlotName != "fresh-notes" {
			t.Errorf("date filter leaked slot %q", r.SlotName)
		}
	}

	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	results = e.Search(SearchQuery{Query: "budget", DateTo: &to})
	for _, r := range results {
		if r.SlotName != "archive-notes" {
			t.Errorf("date filter leaked slot %q", r.SlotName)
		}
	}
}

func TestSearchEngine_ContentTypes(t *testing.T) {
	e := NewSearchEngine(nil)

	slot := testSlot("mixed", "budget numbers")
	slot.Entries = append(slot.Entries, MemoryEntry{
		ID: "mixed-2", Type: EntryAutoSummary, Content: "budget summary", Timestamp: time.Now().UTC(),
	})
	e.AddSlot(slot)

	results := e.Search(SearchQuery{Query: "budget", ContentTypes: []string{EntryAutoSummary}})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	for _, r := range results {
		if r.EntryIndex == nil {
			t.Fatal("expected entry-level result")
		}
		if *r.EntryIndex != 1 {
			t.Errorf("entry index = %d, want 1", *r.EntryIndex)
		}
	}

	results = e.Search(SearchQuery{Query: "budget", ContentTypes: []string{"nonexistent"}})
	if len(results) != 0 {
		t.Errorf("got %d results for unknown content type, want 0", len(results))
	}
}

func TestSearchEngine_EntryBoost(t *testing.T) {
	e := NewSearchEngine(nil)

	// Query term appears in both the slot name and an entry; the
	// entry-level result must rank above the slot-level one.
	slot := testSlot("budget", "the budget spreadsheet lives here")
	e.AddSlot(slot)

	results := e.Search(SearchQuery{Query: "budget"})
	if len(results) < 2 {
		t.Fatalf("got %d results, want slot-level and entry-level", len(results))
	}
	if results[0].EntryIndex == nil {
		t.Error("entry-level result should rank first")
	}

	var slotScore, entryScore float64
	for _, r := range results {
		if r.EntryIndex == nil {
			slotScore = r.RelevanceScore
		} else {
			entryScore = r.RelevanceScore
		}
	}
	if entryScore <= slotScore {
		t.Errorf("entry score %f should exceed slot score %f", entryScore, slotScore)
	}
	if entryScore > 1.0 {
		t.Errorf("entry score %f exceeds 1.0", entryScore)
	}
}

func TestSearchEngine_MatchTypes(t *testing.T) {
	e := NewSearchEngine(nil)

	slot := testSlot("standup", "daily sync notes", "urgent")
	slot.GroupPath = "team/rituals"
	e.AddSlot(slot)

	results := e.Search(SearchQuery{Query: "urgent"})
	if len(results) == 0 {
		t.Fatal("no results for tag query")
	}
	if results[0].MatchType != MatchTag {
		t.Errorf("match type = %q, want %q", results[0].MatchType, MatchTag)
	}

	results = e.Search(SearchQuery{Query: "rituals"})
	if len(results) == 0 {
		t.Fatal("no results for group query")
	}
	if results[0].MatchType != MatchGroup {
		t.Errorf("match type = %q, want %q", results[0].MatchType, MatchGroup)
	}

	results = e.Search(SearchQuery{Query: "standup"})
	if len(results) == 0 {
		t.Fatal("no results for name query")
	}
	if results[0].MatchType != MatchSlot {
		t.Errorf("match type = %q, want %q", results[0].MatchType, MatchSlot)
	}
}

func TestSearchEngine_DescriptionMatch(t *testing.T) {
	e := NewSearchEngine(nil)

	slot := testSlot("runbook", "restart procedure", "ops")
	slot.Description = "escalation contacts for the payments oncall"
	e.AddSlot(slot)

	// Description text is part of the searchable metadata, so a term that
	// appears only there still yields a slot-level result with a snippet.
	results := e.Search(SearchQuery{Query: "oncall"})
	if len(results) == 0 {
		t.Fatal("no results for description-only query")
	}
	if results[0].MatchType != MatchSlot {
		t.Errorf("match type = %q, want %q", results[0].MatchType, MatchSlot)
	}
	if !strings.Contains(results[0].Snippet, "oncall") {
		t.Errorf("snippet %q does not show the matched text", results[0].Snippet)
	}
}

func TestSearchEngine_Snippet(t *testing.T) {
	e := NewSearchEngine(nil)

	long := strings.Repeat("padding words before the match ", 10) +
		"NEEDLE" +
		strings.Repeat(" padding words after the match", 10)
	e.AddSlot(testSlot("long-doc", long))

	results := e.Search(SearchQuery{Query: "needle"})
	if len(results) == 0 {
		t.Fatal("no results")
	}
	snippet := results[0].Snippet
	if !strings.Contains(snippet, "NEEDLE") {
		t.Errorf("snippet %q does not contain the match", snippet)
	}
	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Errorf("snippet %q should be ellipsis-padded on both sides", snippet)
	}
	if len(snippet) > snippetLen+6 {
		t.Errorf("snippet length = %d, want <= %d", len(snippet), snippetLen+6)
	}
}

func TestSearchEngine_Limit(t *testing.T) {
	e := NewSearchEngine(nil)
	for _, name := range []string{"one", "two", "three", "four"} {
		e.AddSlot(testSlot("slot-"+name, "shared keyword limitcheck"))
	}

	results := e.Search(SearchQuery{Query: "limitcheck", MaxResults: 2})
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchEngine_CompressedEntries(t *testing.T) {
	c := compress.NewCompressor(16)
	e := NewSearchEngine(c)

	text := "the elusive snow leopard was spotted near the ridge"
	payload, meta, err := c.CompressContent(text)
	if err != nil {
		t.Fatalf("CompressContent: %v", err)
	}
	if !meta.IsCompressed {
		t.Fatal("test content should compress")
	}

	slot := testSlot("wildlife", "")
	slot.Entries[0].Content = payload
	slot.Entries[0].Compression = meta
	e.AddSlot(slot)

	results := e.Search(SearchQuery{Query: "leopard"})
	if len(results) == 0 {
		t.Fatal("compressed entry not searchable")
	}
	if !strings.Contains(results[0].Snippet, "snow leopard") {
		t.Errorf("snippet %q should show decompressed text", results[0].Snippet)
	}
}

func TestSearchEngine_CorruptedEntrySkipped(t *testing.T) {
	c := compress.NewCompressor(16)
	e := NewSearchEngine(c)

	slot := testSlot("damaged", "intact searchable text")
	slot.Entries = append(slot.Entries, MemoryEntry{
		ID:        "damaged-2",
		Type:      EntryManualSave,
		Content:   "!!! not valid base64 !!!",
		Timestamp: time.Now().UTC(),
		Compression: &compress.Metadata{
			IsCompressed: true,
			Algorithm:    compress.AlgorithmGzip,
		},
	})
	e.AddSlot(slot)

	// The intact entry still matches; the corrupted one is skipped.
	results := e.Search(SearchQuery{Query: "searchable"})
	if len(results) == 0 {
		t.Fatal("intact entry should still match")
	}
	for _, r := range results {
		if r.EntryIndex != nil && *r.EntryIndex == 1 {
			t.Error("corrupted entry appeared in results")
		}
	}
}

func TestSearchEngine_RemoveSlot(t *testing.T) {
	e := testEngine(t)
	e.RemoveSlot("household")

	if e.SlotCount() != 1 {
		t.Errorf("SlotCount = %d, want 1", e.SlotCount())
	}
	results := e.Search(SearchQuery{Query: "groceries"})
	if len(results) != 0 {
		t.Errorf("removed slot still searchable: %v", results)
	}
}

func TestSearchEngine_SearchBoolean(t *testing.T) {
	e := NewSearchEngine(nil)
	e.AddSlot(testSlot("both", "kubernetes networking overlay"))
	e.AddSlot(testSlot("k8s-only", "kubernetes scheduling"))
	e.AddSlot(testSlot("net-only", "datacenter networking"))

	and := e.SearchBoolean([]string{"kubernetes", "networking"}, BoolAnd, false)
	if len(and) != 1 {
		t.Fatalf("AND matched %v, want only the slot with both terms", and)
	}
	if and["both"] <= 0 {
		t.Errorf("AND score = %f, want > 0", and["both"])
	}

	or := e.SearchBoolean([]string{"kubernetes", "networking"}, BoolOr, false)
	if len(or) != 3 {
		t.Errorf("OR matched %d slots, want 3", len(or))
	}

	if got := e.SearchBoolean(nil, BoolOr, false); len(got) != 0 {
		t.Errorf("no terms should produce no results, got %v", got)
	}
}
