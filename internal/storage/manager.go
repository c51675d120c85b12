// Package storage owns slot persistence: one JSON document per slot under
// the memory directory, a single process-wide write lock serializing every
// mutation, and index synchronization so the search engine reflects each
// change. Reads and searches deliberately run outside the lock; they may
// observe an in-flight index, but slot files are never corrupted because
// writes are atomic and lock-serialized among themselves.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/memvault/internal/archive"
	"github.com/nextlevelbuilder/memvault/internal/compress"
	"github.com/nextlevelbuilder/memvault/internal/memory"
	"github.com/nextlevelbuilder/memvault/internal/stats"
)

const readCacheSize = 128

// Manager is the single source of truth for slot persistence.
type Manager struct {
	memoryDir  string
	engine     *memory.SearchEngine
	compressor *compress.Compressor
	archiver   *archive.Manager
	state      *ServerState
	recorder   *stats.Recorder // nil disables stats; never fails an operation

	mu      sync.Mutex // serializes all mutating operations
	indexed bool       // set once the full directory scan has run

	readCache *lru.Cache[string, *memory.MemorySlot]

	// writeHook is injected by tests to force mid-save failures.
	writeHook func() error
}

// Options configures a Manager.
type Options struct {
	MemoryDir  string
	Compressor *compress.Compressor
	Archiver   *archive.Manager
	Recorder   *stats.Recorder
}

// NewManager creates a storage manager rooted at opts.MemoryDir.
func NewManager(opts Options) (*Manager, error) {
	if opts.MemoryDir == "" {
		return nil, fmt.Errorf("memory dir is required")
	}
	if opts.Compressor == nil {
		opts.Compressor = compress.NewCompressor(0)
	}
	if err := os.MkdirAll(opts.MemoryDir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	cache, err := lru.New[string, *memory.MemorySlot](readCacheSize)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		memoryDir:  opts.MemoryDir,
		engine:     memory.NewSearchEngine(opts.Compressor),
		compressor: opts.Compressor,
		archiver:   opts.Archiver,
		state:      NewServerState(),
		recorder:   opts.Recorder,
		readCache:  cache,
	}

	slog.Info("storage manager ready", "dir", opts.MemoryDir)
	return m, nil
}

// Engine exposes the search engine, mainly for tests.
func (m *Manager) Engine() *memory.SearchEngine { return m.engine }

// State returns the session state owned by this manager.
func (m *Manager) State() *ServerState { return m.state }

// Compressor returns the content compressor in use.
func (m *Manager) Compressor() *compress.Compressor { return m.compressor }

// Archiver returns the archive manager, if one was configured.
func (m *Manager) Archiver() *archive.Manager { return m.archiver }

// EnsureIndexed runs the one-time full directory scan that seeds the search
// index from whatever is on disk. Every mutation afterwards keeps the index
// incrementally current. Corrupt slot files are logged and skipped.
func (m *Manager) EnsureIndexed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureIndexedLocked(ctx)
}

func (m *Manager) ensureIndexedLocked(ctx context.Context) error {
	if m.indexed {
		return nil
	}

	entries, err := os.ReadDir(m.memoryDir)
	if err != nil {
		return storageErr("index", "", err)
	}

	var (
		g, _    = errgroup.WithContext(ctx)
		slotsMu sync.Mutex
		slots   []*memory.MemorySlot
	)
	g.SetLimit(8)

	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slotName := strings.TrimSuffix(name, ".json")
		g.Go(func() error {
			slot, err := m.loadSlot(slotName)
			if err != nil {
				slog.Warn("skipping corrupt slot during index build", "slot", slotName, "error", err)
				return nil
			}
			if slot == nil {
				return nil
			}
			slotsMu.Lock()
			slots = append(slots, slot)
			slotsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return storageErr("index", "", err)
	}

	for _, slot := range slots {
		m.engine.AddSlot(slot)
		m.state.recordSlot(slot.SlotName, slot.Tags, slot.GroupPath)
	}

	m.indexed = true
	slog.Info("search index built", "slots", len(slots))
	return nil
}

// persistAndIndex saves the slot and pushes it into the engine, the session
// state, and the read cache. Callers must hold m.mu.
func (m *Manager) persistAndIndex(slot *memory.MemorySlot) error {
	if err := m.saveSlot(slot); err != nil {
		return err
	}
	m.engine.AddSlot(slot)
	m.state.recordSlot(slot.SlotName, slot.Tags, slot.GroupPath)
	m.readCache.Add(slot.SlotName, slot)
	return nil
}

// SaveMemory writes content into a slot, creating it if needed. Manual
// saves replace the entire entry list with a single entry (slots are a
// current buffer, not an append log); auto summaries append.
func (m *Manager) SaveMemory(ctx context.Context, name, content, entryType string) (*memory.MemorySlot, error) {
	if entryType == "" {
		entryType = memory.EntryManualSave
	}
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}
	if err := ValidateEntryType(entryType); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, err := m.loadSlot(name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if slot == nil {
		slot = &memory.MemorySlot{
			SlotName:  name,
			Tags:      []string{},
			CreatedAt: now,
		}
	}

	entry := memory.MemoryEntry{
		ID:        uuid.NewString(),
		Type:      entryType,
		Content:   content,
		Timestamp: now,
	}

	if entryType == memory.EntryManualSave {
		slot.Entries = []memory.MemoryEntry{entry}
	} else {
		slot.Entries = append(slot.Entries, entry)
	}
	slot.UpdatedAt = now

	if err := m.persistAndIndex(slot); err != nil {
		return nil, err
	}
	m.state.SetCurrentSlot(name)
	m.record(ctx, name, "save")
	return slot, nil
}

// ReadMemory loads a slot with entry content decompressed for the caller.
// The stored document is untouched.
func (m *Manager) ReadMemory(ctx context.Context, name string) (*memory.MemorySlot, error) {
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}

	slot, ok := m.readCache.Get(name)
	if !ok {
		var err error
		slot, err = m.loadSlot(name)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			return nil, storageErr("read", name, ErrSlotNotFound)
		}
		m.readCache.Add(name, slot)
	}

	out := *slot
	out.Entries = make([]memory.MemoryEntry, len(slot.Entries))
	for i, e := range slot.Entries {
		text, err := m.compressor.DecompressContent(e.Content, e.Compression)
		if err != nil {
			return nil, storageErr("read", name, fmt.Errorf("entry %d: %w", i, err))
		}
		e.Content = text
		e.Compression = nil
		out.Entries[i] = e
	}

	m.record(ctx, name, "read")
	return &out, nil
}

// SlotInfo summarizes one slot for listings.
type SlotInfo struct {
	SlotName   string    `json:"slot_name"`
	EntryCount int       `json:"entry_count"`
	Tags       []string  `json:"tags,omitempty"`
	GroupPath  string    `json:"group_path,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	SizeBytes  int64     `json:"size_bytes"`
}

// ListSlots scans the memory directory and summarizes every active slot.
// Corrupt files are skipped with a warning.
func (m *Manager) ListSlots(ctx context.Context) ([]SlotInfo, error) {
	entries, err := os.ReadDir(m.memoryDir)
	if err != nil {
		return nil, storageErr("list", "", err)
	}

	var infos []SlotInfo
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slotName := strings.TrimSuffix(name, ".json")
		slot, err := m.loadSlot(slotName)
		if err != nil || slot == nil {
			if err != nil {
				slog.Warn("skipping corrupt slot in listing", "slot", slotName, "error", err)
			}
			continue
		}
		var size int64
		if fi, err := ent.Info(); err == nil {
			size = fi.Size()
		}
		infos = append(infos, SlotInfo{
			SlotName:   slot.SlotName,
			EntryCount: len(slot.Entries),
			Tags:       slot.Tags,
			GroupPath:  slot.GroupPath,
			UpdatedAt:  slot.UpdatedAt,
			SizeBytes:  size,
		})
	}
	return infos, nil
}

// TagSlot adds tags to a slot; UntagSlot removes them. Both persist and
// re-index on change.
func (m *Manager) TagSlot(ctx context.Context, name string, tags []string) (*memory.MemorySlot, error) {
	return m.mutateSlot(ctx, name, "tag", func(slot *memory.MemorySlot) (bool, error) {
		return slot.AddTags(tags) > 0, nil
	})
}

// UntagSlot removes tags from a slot.
func (m *Manager) UntagSlot(ctx context.Context, name string, tags []string) (*memory.MemorySlot, error) {
	return m.mutateSlot(ctx, name, "untag", func(slot *memory.MemorySlot) (bool, error) {
		return slot.RemoveTags(tags) > 0, nil
	})
}

// SetGroup assigns (or clears, with "") the slot's group path.
func (m *Manager) SetGroup(ctx context.Context, name, group string) (*memory.MemorySlot, error) {
	normalized, err := NormalizeGroupPath(group)
	if err != nil {
		return nil, err
	}
	return m.mutateSlot(ctx, name, "group", func(slot *memory.MemorySlot) (bool, error) {
		if slot.GroupPath == normalized {
			return false, nil
		}
		slot.GroupPath = normalized
		return true, nil
	})
}

// SetDescription updates the slot's free-text description.
func (m *Manager) SetDescription(ctx context.Context, name, description string) (*memory.MemorySlot, error) {
	return m.mutateSlot(ctx, name, "describe", func(slot *memory.MemorySlot) (bool, error) {
		if slot.Description == description {
			return false, nil
		}
		slot.Description = description
		return true, nil
	})
}

// mutateSlot loads a slot under the write lock, applies fn, and persists
// plus re-indexes when fn reports a change.
func (m *Manager) mutateSlot(ctx context.Context, name, op string, fn func(*memory.MemorySlot) (bool, error)) (*memory.MemorySlot, error) {
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, err := m.loadSlot(name)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, storageErr(op, name, ErrSlotNotFound)
	}

	changed, err := fn(slot)
	if err != nil {
		return nil, err
	}
	if changed {
		slot.Touch()
		if err := m.persistAndIndex(slot); err != nil {
			return nil, err
		}
	}
	m.record(ctx, name, op)
	return slot, nil
}

// CompressionResult reports the outcome of a compress or decompress pass.
type CompressionResult struct {
	Slot              string  `json:"slot"`
	EntriesChanged    int     `json:"entries_changed"`
	OriginalBytes     int     `json:"original_bytes"`
	CompressedBytes   int     `json:"compressed_bytes"`
	CompressionRatio  float64 `json:"compression_ratio"`
	EntriesSkipped    int     `json:"entries_skipped"`
	Persisted         bool    `json:"persisted"`
}

// CompressSlot compresses every entry above the threshold. Entries already
// compressed are skipped unless force is set (which re-compresses after a
// decompress round-trip). The slot is persisted once, at the end, and only
// if anything changed.
func (m *Manager) CompressSlot(ctx context.Context, name string, force bool) (*CompressionResult, error) {
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, err := m.loadSlot(name)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, storageErr("compress", name, ErrSlotNotFound)
	}

	res := &CompressionResult{Slot: name}
	for i := range slot.Entries {
		entry := &slot.Entries[i]

		text := entry.Content
		if entry.Compression != nil && entry.Compression.IsCompressed {
			if !force {
				res.EntriesSkipped++
				continue
			}
			text, err = m.compressor.DecompressContent(entry.Content, entry.Compression)
			if err != nil {
				return nil, storageErr("compress", name, fmt.Errorf("entry %d: %w", i, err))
			}
		}
		if !m.compressor.ShouldCompress(text) {
			continue
		}

		payload, meta, err := m.compressor.CompressContent(text)
		if err != nil {
			return nil, storageErr("compress", name, fmt.Errorf("entry %d: %w", i, err))
		}
		entry.Content = payload
		entry.Compression = meta
		res.EntriesChanged++
		res.OriginalBytes += meta.OriginalSize
		res.CompressedBytes += meta.CompressedSize
	}

	if res.OriginalBytes > 0 {
		res.CompressionRatio = float64(res.CompressedBytes) / float64(res.OriginalBytes)
	}

	if res.EntriesChanged > 0 {
		slot.Touch()
		if err := m.persistAndIndex(slot); err != nil {
			return nil, err
		}
		res.Persisted = true
	}

	m.record(ctx, name, "compress")
	return res, nil
}

// DecompressSlot restores every compressed entry to raw text.
func (m *Manager) DecompressSlot(ctx context.Context, name string) (*CompressionResult, error) {
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, err := m.loadSlot(name)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, storageErr("decompress", name, ErrSlotNotFound)
	}

	res := &CompressionResult{Slot: name}
	for i := range slot.Entries {
		entry := &slot.Entries[i]
		if entry.Compression == nil || !entry.Compression.IsCompressed {
			continue
		}
		text, err := m.compressor.DecompressContent(entry.Content, entry.Compression)
		if err != nil {
			return nil, storageErr("decompress", name, fmt.Errorf("entry %d: %w", i, err))
		}
		res.OriginalBytes += entry.Compression.CompressedSize
		res.CompressedBytes += len(text)
		entry.Content = text
		entry.Compression = nil
		res.EntriesChanged++
	}

	if res.EntriesChanged > 0 {
		slot.Touch()
		if err := m.persistAndIndex(slot); err != nil {
			return nil, err
		}
		res.Persisted = true
	}

	m.record(ctx, name, "decompress")
	return res, nil
}

// DeleteSlot removes a slot's file, index entry, cache entry, and state
// references. Idempotent: returns false (no error) when nothing existed.
func (m *Manager) DeleteSlot(ctx context.Context, name string) (bool, error) {
	if err := ValidateSlotName(name); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.removeSlotFile(name)
	if err != nil {
		return false, err
	}

	m.engine.RemoveSlot(name)
	m.state.forgetSlot(name)
	m.readCache.Remove(name)

	if removed {
		m.record(ctx, name, "delete")
	}
	return removed, nil
}

// SearchMemory runs a query, lazily building the index on first use.
func (m *Manager) SearchMemory(ctx context.Context, query memory.SearchQuery) ([]memory.SearchResult, error) {
	if err := m.EnsureIndexed(ctx); err != nil {
		return nil, err
	}

	results := m.engine.Search(query)

	if m.recorder != nil {
		if err := m.recorder.RecordSearch(ctx, query.Query, len(results)); err != nil {
			slog.Warn("stats search record failed", "error", err)
		}
	}
	return results, nil
}

// ArchiveSlot hands the loaded slot to the archival manager, then removes
// the active copy. A slot is never simultaneously active and archived.
func (m *Manager) ArchiveSlot(ctx context.Context, name, reason string) (*archive.ArchiveResult, error) {
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}
	if m.archiver == nil {
		return nil, storageErr("archive", name, ErrArchivalUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, err := m.loadSlot(name)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, storageErr("archive", name, ErrSlotNotFound)
	}

	result, err := m.archiver.ArchiveSlot(ctx, slot, reason)
	if err != nil {
		return nil, err
	}

	if _, err := m.removeSlotFile(name); err != nil {
		return nil, err
	}
	m.engine.RemoveSlot(name)
	m.state.forgetSlot(name)
	m.readCache.Remove(name)

	m.record(ctx, name, "archive")
	return result, nil
}

// RestoreFromArchive brings an archived slot back into active storage and
// re-indexes it, then drops the archived copy.
func (m *Manager) RestoreFromArchive(ctx context.Context, name string) (*memory.MemorySlot, error) {
	if err := ValidateSlotName(name); err != nil {
		return nil, err
	}
	if m.archiver == nil {
		return nil, storageErr("restore", name, ErrArchivalUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if active, err := m.loadSlot(name); err != nil {
		return nil, err
	} else if active != nil {
		return nil, storageErr("restore", name, ErrSlotExists)
	}

	slot, err := m.archiver.RestoreSlot(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := m.persistAndIndex(slot); err != nil {
		return nil, err
	}

	if err := m.archiver.RemoveArchive(ctx, name); err != nil {
		// Active copy is saved; the leftover archive is cosmetic.
		slog.Warn("failed to drop archived copy after restore", "slot", name, "error", err)
	}

	m.record(ctx, name, "restore")
	return slot, nil
}

// ArchiveCandidates lists slots eligible for archival.
func (m *Manager) ArchiveCandidates(ctx context.Context, daysInactive, minEntries int) ([]archive.Candidate, error) {
	if m.archiver == nil {
		return nil, storageErr("candidates", "", ErrArchivalUnavailable)
	}
	return m.archiver.FindCandidates(ctx, m.memoryDir, daysInactive, minEntries)
}

// record logs an access event to the stats DB, best-effort.
func (m *Manager) record(ctx context.Context, slot, action string) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordAccess(ctx, slot, action); err != nil {
		slog.Warn("stats access record failed", "slot", slot, "action", action, "error", err)
	}
}

// MemoryDir returns the active memory directory.
func (m *Manager) MemoryDir() string { return m.memoryDir }
