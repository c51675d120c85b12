// Package archive moves slots to cold storage and back. Archived slots live
// as compressed JSON documents under the archive directory, tracked by a
// single index.json ledger written with the same backup-then-write-then-
// cleanup discipline as active slots.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nextlevelbuilder/memvault/internal/compress"
	"github.com/nextlevelbuilder/memvault/internal/memory"
)

// Error wraps a failed archival operation with slot context.
type Error struct {
	Op   string
	Slot string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive %s (slot %q): %v", e.Op, e.Slot, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotArchived reports a restore of a slot that has no archive entry.
var ErrNotArchived = errors.New("slot not archived")

// Entry is one row in the archive ledger.
type Entry struct {
	SlotName         string    `json:"slot_name"`
	ArchivePath      string    `json:"archive_path"`
	OriginalSize     int64     `json:"original_size"`
	ArchivedSize     int64     `json:"archived_size"`
	CompressionRatio float64   `json:"compression_ratio"`
	EntryCount       int       `json:"entry_count"`
	ArchivedAt       time.Time `json:"archived_at"`
	Reason           string    `json:"reason,omitempty"`
}

// Stats are aggregate ledger statistics, recomputed from the full entry set
// on every change rather than maintained as running counters, so they can
// never drift.
type Stats struct {
	TotalArchives     int     `json:"total_archives"`
	TotalOriginalSize int64   `json:"total_original_size"`
	TotalArchivedSize int64   `json:"total_archived_size"`
	AverageRatio      float64 `json:"average_ratio"`
}

// Index is the on-disk ledger document.
type Index struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
	Stats   Stats            `json:"stats"`
}

func (ix *Index) recompute() {
	st := Stats{TotalArchives: len(ix.Entries)}
	var ratioSum float64
	for _, e := range ix.Entries {
		st.TotalOriginalSize += e.OriginalSize
		st.TotalArchivedSize += e.ArchivedSize
		ratioSum += e.CompressionRatio
	}
	if st.TotalArchives > 0 {
		st.AverageRatio = ratioSum / float64(st.TotalArchives)
	}
	ix.Stats = st
}

// ArchiveResult reports a completed archival.
type ArchiveResult struct {
	Slot             string  `json:"slot"`
	ArchivePath      string  `json:"archive_path"`
	OriginalSize     int64   `json:"original_size"`
	ArchivedSize     int64   `json:"archived_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	EntryCount       int     `json:"entry_count"`
}

// Candidate is a slot eligible for archival.
type Candidate struct {
	SlotName     string    `json:"slot_name"`
	EntryCount   int       `json:"entry_count"`
	UpdatedAt    time.Time `json:"updated_at"`
	DaysInactive int       `json:"days_inactive"`
}

// Manager owns the archive directory and its ledger. A dedicated mutex
// serializes ledger mutations, independent of the storage write lock.
type Manager struct {
	dir        string
	compressor *compress.Compressor
	mu         sync.Mutex
}

// NewManager creates an archival manager rooted at dir.
func NewManager(dir string, c *compress.Compressor) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	if c == nil {
		c = compress.NewCompressor(0)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Manager{dir: dir, compressor: c}, nil
}

// Dir returns the archive directory.
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) indexPath() string {
	return filepath.Join(m.dir, "index.json")
}

func (m *Manager) archivePath(slotName string) string {
	return filepath.Join(m.dir, slotName+"_archived.json")
}

// loadIndex reads the ledger, returning an empty index when none exists.
func (m *Manager) loadIndex() (*Index, error) {
	data, err := os.ReadFile(m.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{Version: 1, Entries: map[string]Entry{}}, nil
		}
		return nil, fmt.Errorf("read archive index: %w", err)
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("corrupt archive index: %w", err)
	}
	if ix.Entries == nil {
		ix.Entries = map[string]Entry{}
	}
	return &ix, nil
}

// saveIndex persists the ledger with backup-on-failure: the previous index
// is renamed aside, the new one written via temp file and rename, and the
// backup restored if anything goes wrong.
func (m *Manager) saveIndex(ix *Index) error {
	ix.recompute()

	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive index: %w", err)
	}

	target := m.indexPath()
	backup := target + ".bak"
	hadPrevious := false
	if _, statErr := os.Stat(target); statErr == nil {
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("back up archive index: %w", err)
		}
		hadPrevious = true
	}

	tmp := target + ".tmp"
	writeErr := os.WriteFile(tmp, data, 0o644)
	if writeErr == nil {
		writeErr = os.Rename(tmp, target)
	}
	if writeErr != nil {
		os.Remove(tmp)
		if hadPrevious {
			if rbErr := os.Rename(backup, target); rbErr != nil {
				writeErr = errors.Join(writeErr, rbErr)
			}
		}
		return fmt.Errorf("write archive index: %w", writeErr)
	}

	if hadPrevious {
		os.Remove(backup)
	}
	return nil
}

// ArchiveSlot compresses any raw entries, writes the archived document, and
// records the ledger entry.
func (m *Manager) ArchiveSlot(ctx context.Context, slot *memory.MemorySlot, reason string) (*ArchiveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	originalData, err := json.Marshal(slot)
	if err != nil {
		return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: err}
	}

	archived := *slot
	archived.Entries = make([]memory.MemoryEntry, len(slot.Entries))
	copy(archived.Entries, slot.Entries)

	for i := range archived.Entries {
		entry := &archived.Entries[i]
		if entry.Compression != nil && entry.Compression.IsCompressed {
			continue
		}
		payload, meta, err := m.compressor.CompressContent(entry.Content)
		if err != nil {
			return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		entry.Content = payload
		entry.Compression = meta
	}

	now := time.Now().UTC()
	archived.IsArchived = true
	archived.ArchivedAt = &now
	archived.ArchiveReason = reason

	data, err := json.MarshalIndent(&archived, "", "  ")
	if err != nil {
		return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: err}
	}

	target := m.archivePath(slot.SlotName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: err}
	}

	ix, err := m.loadIndex()
	if err != nil {
		return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: err}
	}

	entry := Entry{
		SlotName:     slot.SlotName,
		ArchivePath:  target,
		OriginalSize: int64(len(originalData)),
		ArchivedSize: int64(len(data)),
		EntryCount:   len(slot.Entries),
		ArchivedAt:   now,
		Reason:       reason,
	}
	if entry.OriginalSize > 0 {
		entry.CompressionRatio = float64(entry.ArchivedSize) / float64(entry.OriginalSize)
	}
	ix.Entries[slot.SlotName] = entry

	if err := m.saveIndex(ix); err != nil {
		// Roll the archived document back out so ledger and directory agree.
		os.Remove(target)
		return nil, &Error{Op: "archive", Slot: slot.SlotName, Err: err}
	}

	slog.Info("slot archived", "slot", slot.SlotName, "entries", entry.EntryCount, "reason", reason)

	return &ArchiveResult{
		Slot:             slot.SlotName,
		ArchivePath:      target,
		OriginalSize:     entry.OriginalSize,
		ArchivedSize:     entry.ArchivedSize,
		CompressionRatio: entry.CompressionRatio,
		EntryCount:       entry.EntryCount,
	}, nil
}

// RestoreSlot loads an archived document, decompresses its entries, and
// returns the reconstructed slot marked unarchived. Missing ledger entries
// or archive files are errors.
func (m *Manager) RestoreSlot(ctx context.Context, slotName string) (*memory.MemorySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ix, err := m.loadIndex()
	if err != nil {
		return nil, &Error{Op: "restore", Slot: slotName, Err: err}
	}
	entry, ok := ix.Entries[slotName]
	if !ok {
		return nil, &Error{Op: "restore", Slot: slotName, Err: ErrNotArchived}
	}

	data, err := os.ReadFile(entry.ArchivePath)
	if err != nil {
		return nil, &Error{Op: "restore", Slot: slotName, Err: fmt.Errorf("archive file: %w", err)}
	}

	var slot memory.MemorySlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, &Error{Op: "restore", Slot: slotName, Err: fmt.Errorf("corrupt archive: %w", err)}
	}

	for i := range slot.Entries {
		e := &slot.Entries[i]
		text, err := m.compressor.DecompressContent(e.Content, e.Compression)
		if err != nil {
			return nil, &Error{Op: "restore", Slot: slotName, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		e.Content = text
		e.Compression = nil
	}

	slot.IsArchived = false
	slot.ArchivedAt = nil
	slot.ArchiveReason = ""

	slog.Info("slot restored from archive", "slot", slotName, "entries", len(slot.Entries))
	return &slot, nil
}

// RemoveArchive deletes a slot's archived document and ledger entry.
func (m *Manager) RemoveArchive(ctx context.Context, slotName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ix, err := m.loadIndex()
	if err != nil {
		return &Error{Op: "remove", Slot: slotName, Err: err}
	}
	entry, ok := ix.Entries[slotName]
	if !ok {
		return nil
	}

	if err := os.Remove(entry.ArchivePath); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "remove", Slot: slotName, Err: err}
	}

	delete(ix.Entries, slotName)
	if err := m.saveIndex(ix); err != nil {
		return &Error{Op: "remove", Slot: slotName, Err: err}
	}
	return nil
}

// ListArchived returns the current ledger entries and stats.
func (m *Manager) ListArchived(ctx context.Context) ([]Entry, Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ix, err := m.loadIndex()
	if err != nil {
		return nil, Stats{}, &Error{Op: "list", Err: err}
	}

	out := make([]Entry, 0, len(ix.Entries))
	for _, e := range ix.Entries {
		out = append(out, e)
	}
	return out, ix.Stats, nil
}
