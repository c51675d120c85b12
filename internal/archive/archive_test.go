package archive

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/memvault/internal/compress"
	"github.com/nextlevelbuilder/memvault/internal/memory"
)

func newTestArchiver(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), compress.NewCompressor(32))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func sampleSlot(name string) *memory.MemorySlot {
	now := time.Now().UTC()
	return &memory.MemorySlot{
		SlotName: name,
		Entries: []memory.MemoryEntry{
			{
				ID:        name + "-1",
				Type:      memory.EntryManualSave,
				Content:   strings.Repeat("long lived knowledge worth archiving ", 10),
				Timestamp: now,
			},
			{
				ID:        name + "-2",
				Type:      memory.EntryAutoSummary,
				Content:   "short",
				Timestamp: now,
			},
		},
		Tags:      []string{"cold"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestArchiveSlot(t *testing.T) {
	m := newTestArchiver(t)
	ctx := context.Background()

	slot := sampleSlot("project")
	result, err := m.ArchiveSlot(ctx, slot, "wrapped up")
	if err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}
	if result.EntryCount != 2 {
		t.Errorf("entry count = %d, want 2", result.EntryCount)
	}
	if result.ArchivePath != filepath.Join(m.Dir(), "project_archived.json") {
		t.Errorf("archive path = %q", result.ArchivePath)
	}

	// The caller's slot is untouched; only the archived copy is compressed.
	if slot.IsArchived {
		t.Error("original slot mutated by archival")
	}
	if slot.Entries[0].Compression != nil {
		t.Error("original entry compressed in place")
	}

	data, err := os.ReadFile(result.ArchivePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var archived memory.MemorySlot
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !archived.IsArchived || archived.ArchivedAt == nil {
		t.Error("archived document not marked archived")
	}
	if archived.ArchiveReason != "wrapped up" {
		t.Errorf("reason = %q", archived.ArchiveReason)
	}
	if archived.Entries[0].Compression == nil || !archived.Entries[0].Compression.IsCompressed {
		t.Error("large entry not compressed in archive")
	}

	entries, stats, err := m.ListArchived(ctx)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(entries) != 1 || entries[0].SlotName != "project" {
		t.Fatalf("ledger entries = %v", entries)
	}
	if stats.TotalArchives != 1 {
		t.Errorf("total archives = %d, want 1", stats.TotalArchives)
	}
}

func TestRestoreSlot_RoundTrip(t *testing.T) {
	m := newTestArchiver(t)
	ctx := context.Background()

	original := sampleSlot("trip")
	if _, err := m.ArchiveSlot(ctx, original, ""); err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}

	restored, err := m.RestoreSlot(ctx, "trip")
	if err != nil {
		t.Fatalf("RestoreSlot: %v", err)
	}
	if restored.IsArchived || restored.ArchivedAt != nil || restored.ArchiveReason != "" {
		t.Error("restored slot still carries archive markers")
	}
	if len(restored.Entries) != len(original.Entries) {
		t.Fatalf("entry count = %d, want %d", len(restored.Entries), len(original.Entries))
	}
	for i := range restored.Entries {
		if restored.Entries[i].Content != original.Entries[i].Content {
			t.Errorf("entry %d content differs after round trip", i)
		}
		if restored.Entries[i].Compression != nil {
			t.Errorf("entry %d still compressed after restore", i)
		}
	}
}

func TestRestoreSlot_NotArchived(t *testing.T) {
	m := newTestArchiver(t)

	_, err := m.RestoreSlot(context.Background(), "never-archived")
	if !errors.Is(err, ErrNotArchived) {
		t.Errorf("err = %v, want ErrNotArchived", err)
	}
}

func TestRemoveArchive(t *testing.T) {
	m := newTestArchiver(t)
	ctx := context.Background()

	result, err := m.ArchiveSlot(ctx, sampleSlot("gone"), "")
	if err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}

	if err := m.RemoveArchive(ctx, "gone"); err != nil {
		t.Fatalf("RemoveArchive: %v", err)
	}
	if _, err := os.Stat(result.ArchivePath); !os.IsNotExist(err) {
		t.Error("archived document still on disk")
	}
	entries, stats, err := m.ListArchived(ctx)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(entries) != 0 || stats.TotalArchives != 0 {
		t.Errorf("ledger not empty after removal: %v, %+v", entries, stats)
	}

	// Removing an unknown slot is a no-op.
	if err := m.RemoveArchive(ctx, "gone"); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestLedgerStats_Recomputed(t *testing.T) {
	m := newTestArchiver(t)
	ctx := context.Background()

	if _, err := m.ArchiveSlot(ctx, sampleSlot("one"), ""); err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}
	if _, err := m.ArchiveSlot(ctx, sampleSlot("two"), ""); err != nil {
		t.Fatalf("ArchiveSlot: %v", err)
	}

	_, stats, err := m.ListArchived(ctx)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if stats.TotalArchives != 2 {
		t.Errorf("total = %d, want 2", stats.TotalArchives)
	}
	if stats.TotalOriginalSize <= 0 || stats.TotalArchivedSize <= 0 {
		t.Errorf("sizes not aggregated: %+v", stats)
	}
	if stats.AverageRatio <= 0 {
		t.Errorf("average ratio = %f, want > 0", stats.AverageRatio)
	}

	if err := m.RemoveArchive(ctx, "one"); err != nil {
		t.Fatalf("RemoveArchive: %v", err)
	}
	_, stats, err = m.ListArchived(ctx)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if stats.TotalArchives != 1 {
		t.Errorf("total after removal = %d, want 1", stats.TotalArchives)
	}
}

func TestFindCandidates(t *testing.T) {
	m := newTestArchiver(t)
	memoryDir := t.TempDir()

	writeSlot := func(name string, age int, entryCount int) {
		now := time.Now().UTC()
		slot := memory.MemorySlot{
			SlotName:  name,
			UpdatedAt: now.AddDate(0, 0, -age),
			CreatedAt: now.AddDate(0, 0, -age),
		}
		for i := 0; i < entryCount; i++ {
			slot.Entries = append(slot.Entries, memory.MemoryEntry{
				ID: name, Type: memory.EntryManualSave, Content: "x", Timestamp: slot.UpdatedAt,
			})
		}
		data, err := json.Marshal(&slot)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if err := os.WriteFile(filepath.Join(memoryDir, name+".json"), data, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	writeSlot("ancient", 200, 3)
	writeSlot("old", 60, 2)
	writeSlot("fresh", 2, 5)
	writeSlot("empty-old", 90, 0)
	if err := os.WriteFile(filepath.Join(memoryDir, "corrupt.json"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	candidates, err := m.FindCandidates(context.Background(), memoryDir, 30, 1)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2: %v", len(candidates), candidates)
	}
	// Sorted by inactivity, most stale first.
	if candidates[0].SlotName != "ancient" || candidates[1].SlotName != "old" {
		t.Errorf("order = [%s %s], want [ancient old]", candidates[0].SlotName, candidates[1].SlotName)
	}
	if candidates[0].DaysInactive < 190 {
		t.Errorf("days inactive = %d, want ~200", candidates[0].DaysInactive)
	}
}
