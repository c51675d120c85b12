package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/memvault/internal/archive"
	"github.com/nextlevelbuilder/memvault/internal/compress"
	"github.com/nextlevelbuilder/memvault/internal/memory"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	base := t.TempDir()

	compressor := compress.NewCompressor(64)
	archiver, err := archive.NewManager(filepath.Join(base, "archive"), compressor)
	if err != nil {
		t.Fatalf("archive.NewManager: %v", err)
	}

	mgr, err := NewManager(Options{
		MemoryDir:  filepath.Join(base, "memory"),
		Compressor: compressor,
		Archiver:   archiver,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestSaveMemory_CreateAndReplace(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	slot, err := mgr.SaveMemory(ctx, "notes", "first version", memory.EntryManualSave)
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if len(slot.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(slot.Entries))
	}
	if slot.Entries[0].ID == "" {
		t.Error("entry has no ID")
	}

	// A second manual save replaces the buffer, it does not append.
	slot, err = mgr.SaveMemory(ctx, "notes", "second version", memory.EntryManualSave)
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if len(slot.Entries) != 1 {
		t.Fatalf("entries after re-save = %d, want 1", len(slot.Entries))
	}
	if slot.Entries[0].Content != "second version" {
		t.Errorf("content = %q, want %q", slot.Entries[0].Content, "second version")
	}
}

func TestSaveMemory_SummaryAppends(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "journal", "base content", memory.EntryManualSave); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	slot, err := mgr.SaveMemory(ctx, "journal", "summary of the day", memory.EntryAutoSummary)
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if len(slot.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(slot.Entries))
	}
	if slot.Entries[1].Type != memory.EntryAutoSummary {
		t.Errorf("type = %q, want %q", slot.Entries[1].Type, memory.EntryAutoSummary)
	}
}

func TestSaveMemory_Validation(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "../escape", "content", ""); err == nil {
		t.Error("traversal slot name accepted")
	}
	if _, err := mgr.SaveMemory(ctx, "ok", "", ""); err == nil {
		t.Error("empty content accepted")
	}
	if _, err := mgr.SaveMemory(ctx, "ok", "content", "bogus_type"); err == nil {
		t.Error("unknown entry type accepted")
	}

	var verr *ValidationError
	_, err := mgr.SaveMemory(ctx, "index", "content", "")
	if !errors.As(err, &verr) {
		t.Errorf("reserved name error = %v, want ValidationError", err)
	}
}

func TestReadMemory_RoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "trip", "remember this exact text", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	slot, err := mgr.ReadMemory(ctx, "trip")
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if slot.Entries[0].Content != "remember this exact text" {
		t.Errorf("content = %q", slot.Entries[0].Content)
	}

	// A fresh manager over the same directory sees the same document.
	mgr2, err := NewManager(Options{MemoryDir: mgr.MemoryDir()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	slot2, err := mgr2.ReadMemory(ctx, "trip")
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if slot2.Entries[0].Content != slot.Entries[0].Content {
		t.Error("content did not survive reload")
	}
}

func TestReadMemory_NotFound(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.ReadMemory(context.Background(), "missing")
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("err = %v, want ErrSlotNotFound", err)
	}
}

func TestReadMemory_ReturnsDecompressedCopy(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	content := strings.Repeat("compressible content ", 20)
	if _, err := mgr.SaveMemory(ctx, "large", content, ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	res, err := mgr.CompressSlot(ctx, "large", false)
	if err != nil {
		t.Fatalf("CompressSlot: %v", err)
	}
	if res.EntriesChanged != 1 {
		t.Fatalf("entries changed = %d, want 1", res.EntriesChanged)
	}

	slot, err := mgr.ReadMemory(ctx, "large")
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if slot.Entries[0].Content != content {
		t.Error("read did not decompress entry content")
	}
	if slot.Entries[0].Compression != nil {
		t.Error("read copy should not carry compression metadata")
	}

	// The stored document stays compressed.
	data, err := os.ReadFile(filepath.Join(mgr.MemoryDir(), "large.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "compressible content") {
		t.Error("on-disk document holds raw text after compression")
	}
}

func TestSaveMemory_FailedWriteKeepsPrevious(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "durable", "good version", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	mgr.writeHook = func() error { return fmt.Errorf("disk full") }
	if _, err := mgr.SaveMemory(ctx, "durable", "doomed version", ""); err == nil {
		t.Fatal("expected save failure")
	}
	mgr.writeHook = nil

	// Drop the cache so the read goes back to disk.
	mgr.readCache.Remove("durable")

	slot, err := mgr.ReadMemory(ctx, "durable")
	if err != nil {
		t.Fatalf("ReadMemory after failed save: %v", err)
	}
	if slot.Entries[0].Content != "good version" {
		t.Errorf("content = %q, want the pre-failure version", slot.Entries[0].Content)
	}
	if _, err := os.Stat(filepath.Join(mgr.MemoryDir(), "durable.json.bak")); !os.IsNotExist(err) {
		t.Error("backup file left behind after rollback")
	}
}

func TestDeleteSlot_Idempotent(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "doomed", "content", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	removed, err := mgr.DeleteSlot(ctx, "doomed")
	if err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	if !removed {
		t.Error("first delete should report removal")
	}

	removed, err = mgr.DeleteSlot(ctx, "doomed")
	if err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	if removed {
		t.Error("second delete should be a no-op")
	}

	if _, err := mgr.ReadMemory(ctx, "doomed"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("read after delete = %v, want ErrSlotNotFound", err)
	}
}

func TestListSlots(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		if _, err := mgr.SaveMemory(ctx, name, "content for "+name, ""); err != nil {
			t.Fatalf("SaveMemory: %v", err)
		}
	}
	if _, err := mgr.TagSlot(ctx, "alpha", []string{"Work"}); err != nil {
		t.Fatalf("TagSlot: %v", err)
	}

	infos, err := mgr.ListSlots(ctx)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d slots, want 2", len(infos))
	}

	byName := map[string]SlotInfo{}
	for _, info := range infos {
		byName[info.SlotName] = info
	}
	alpha := byName["alpha"]
	if alpha.EntryCount != 1 {
		t.Errorf("alpha entry count = %d, want 1", alpha.EntryCount)
	}
	if len(alpha.Tags) != 1 || alpha.Tags[0] != "work" {
		t.Errorf("alpha tags = %v, want [work]", alpha.Tags)
	}
	if alpha.SizeBytes <= 0 {
		t.Error("alpha size should be positive")
	}
}

func TestTagUntagSlot(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "tagged", "some content", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	slot, err := mgr.TagSlot(ctx, "tagged", []string{"URGENT", "work", "urgent"})
	if err != nil {
		t.Fatalf("TagSlot: %v", err)
	}
	if len(slot.Tags) != 2 {
		t.Fatalf("tags = %v, want lowercased de-duplicated pair", slot.Tags)
	}

	slot, err = mgr.UntagSlot(ctx, "tagged", []string{"work"})
	if err != nil {
		t.Fatalf("UntagSlot: %v", err)
	}
	if len(slot.Tags) != 1 || slot.Tags[0] != "urgent" {
		t.Errorf("tags = %v, want [urgent]", slot.Tags)
	}

	if _, err := mgr.TagSlot(ctx, "missing", []string{"x"}); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("tagging missing slot = %v, want ErrSlotNotFound", err)
	}
}

func TestSetGroup(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "grouped", "content here", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	slot, err := mgr.SetGroup(ctx, "grouped", `work\projects`)
	if err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	if slot.GroupPath != "work/projects" {
		t.Errorf("group = %q, want %q", slot.GroupPath, "work/projects")
	}

	if _, err := mgr.SetGroup(ctx, "grouped", "/absolute"); err == nil {
		t.Error("absolute group path accepted")
	}

	slot, err = mgr.SetGroup(ctx, "grouped", "")
	if err != nil {
		t.Fatalf("SetGroup clear: %v", err)
	}
	if slot.GroupPath != "" {
		t.Errorf("group = %q, want cleared", slot.GroupPath)
	}
}

func TestCompressDecompressSlot(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	content := strings.Repeat("highly repetitive filler text ", 30)
	if _, err := mgr.SaveMemory(ctx, "bulk", content, ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	res, err := mgr.CompressSlot(ctx, "bulk", false)
	if err != nil {
		t.Fatalf("CompressSlot: %v", err)
	}
	if res.EntriesChanged != 1 || !res.Persisted {
		t.Fatalf("result = %+v, want one changed entry, persisted", res)
	}
	if res.CompressionRatio >= 1.0 {
		t.Errorf("ratio = %f, want < 1.0 for repetitive text", res.CompressionRatio)
	}

	// Second pass without force skips the already-compressed entry.
	res, err = mgr.CompressSlot(ctx, "bulk", false)
	if err != nil {
		t.Fatalf("CompressSlot: %v", err)
	}
	if res.EntriesChanged != 0 || res.EntriesSkipped != 1 || res.Persisted {
		t.Errorf("second pass = %+v, want skip only", res)
	}

	res, err = mgr.DecompressSlot(ctx, "bulk")
	if err != nil {
		t.Fatalf("DecompressSlot: %v", err)
	}
	if res.EntriesChanged != 1 {
		t.Fatalf("decompress changed = %d, want 1", res.EntriesChanged)
	}

	slot, err := mgr.ReadMemory(ctx, "bulk")
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if slot.Entries[0].Content != content {
		t.Error("content corrupted by compress/decompress cycle")
	}
}

func TestEnsureIndexed_SkipsCorruptFiles(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "healthy", "findable keyword zanzibar", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	corrupt := filepath.Join(mgr.MemoryDir(), "broken.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// A fresh manager has to rebuild the index from disk.
	mgr2, err := NewManager(Options{MemoryDir: mgr.MemoryDir()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	results, err := mgr2.SearchMemory(ctx, memory.SearchQuery{Query: "zanzibar"})
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(results) == 0 {
		t.Error("healthy slot not indexed")
	}
	for _, r := range results {
		if r.SlotName == "broken" {
			t.Error("corrupt file leaked into the index")
		}
	}
}

func TestSearchMemory_IndexFollowsMutations(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "live", "original xylophone content", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	results, err := mgr.SearchMemory(ctx, memory.SearchQuery{Query: "xylophone"})
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("fresh save not searchable")
	}

	if _, err := mgr.SaveMemory(ctx, "live", "replaced with quokka content", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	results, err = mgr.SearchMemory(ctx, memory.SearchQuery{Query: "xylophone"})
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(results) != 0 {
		t.Error("stale content still searchable after replacement")
	}

	if _, err := mgr.DeleteSlot(ctx, "live"); err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	results, err = mgr.SearchMemory(ctx, memory.SearchQuery{Query: "quokka"})
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(results) != 0 {
		t.Error("deleted slot still searchable")
	}
}

func TestArchiveRestore_RoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	content := strings.Repeat("archived material worth keeping ", 10)
	if _, err := mgr.SaveMemory(ctx, "cold", content, ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	result, err := mgr.ArchiveSlot(ctx, "cold", "test archival")
	if err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}
	if result.EntryCount != 1 {
		t.Errorf("entry count = %d, want 1", result.EntryCount)
	}

	// The active copy is gone; a slot is never active and archived at once.
	if _, err := mgr.ReadMemory(ctx, "cold"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("read after archive = %v, want ErrSlotNotFound", err)
	}
	if results, _ := mgr.SearchMemory(ctx, memory.SearchQuery{Query: "archived"}); len(results) != 0 {
		t.Error("archived slot still searchable")
	}

	slot, err := mgr.RestoreFromArchive(ctx, "cold")
	if err != nil {
		t.Fatalf("RestoreFromArchive: %v", err)
	}
	if slot.IsArchived {
		t.Error("restored slot still marked archived")
	}
	if len(slot.Entries) != 1 || slot.Entries[0].Content != content {
		t.Error("restore did not preserve entry content")
	}

	restored, err := mgr.ReadMemory(ctx, "cold")
	if err != nil {
		t.Fatalf("ReadMemory after restore: %v", err)
	}
	if restored.Entries[0].Content != content {
		t.Error("restored slot content differs after read")
	}
}

func TestRestoreFromArchive_ActiveSlotCollision(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "cold", "original material", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if _, err := mgr.ArchiveSlot(ctx, "cold", "shelved"); err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}

	// A new slot takes the name while the old one sits in the archive.
	if _, err := mgr.SaveMemory(ctx, "cold", "replacement material", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	if _, err := mgr.RestoreFromArchive(ctx, "cold"); !errors.Is(err, ErrSlotExists) {
		t.Fatalf("restore over active slot = %v, want ErrSlotExists", err)
	}

	// The active copy is untouched.
	slot, err := mgr.ReadMemory(ctx, "cold")
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if slot.Entries[0].Content != "replacement material" {
		t.Error("refused restore altered the active slot")
	}
}

func TestArchiveCandidates(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.SaveMemory(ctx, "stale", "old forgotten notes", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if _, err := mgr.SaveMemory(ctx, "active", "fresh notes", ""); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	// Age one slot on disk directly.
	path := filepath.Join(mgr.MemoryDir(), "stale.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var slot memory.MemorySlot
	if err := json.Unmarshal(data, &slot); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	slot.UpdatedAt = time.Now().UTC().AddDate(0, 0, -120)
	aged, err := json.Marshal(&slot)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, aged, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	candidates, err := mgr.ArchiveCandidates(ctx, 30, 1)
	if err != nil {
		t.Fatalf("ArchiveCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %v", len(candidates), candidates)
	}
	if candidates[0].SlotName != "stale" {
		t.Errorf("candidate = %q, want stale", candidates[0].SlotName)
	}
	if candidates[0].DaysInactive < 100 {
		t.Errorf("days inactive = %d, want >= 100", candidates[0].DaysInactive)
	}
}
