package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/memvault/internal/memory"
)

// ExportDocument is the portable YAML representation of the whole store.
// Entries are exported decompressed so the document is readable and can be
// imported by a store with a different compression threshold.
type ExportDocument struct {
	Version    int          `yaml:"version"`
	ExportedAt time.Time    `yaml:"exported_at"`
	Slots      []ExportSlot `yaml:"slots"`
}

type ExportSlot struct {
	SlotName    string        `yaml:"slot_name"`
	Description string        `yaml:"description,omitempty"`
	Tags        []string      `yaml:"tags,omitempty"`
	GroupPath   string        `yaml:"group_path,omitempty"`
	CreatedAt   time.Time     `yaml:"created_at"`
	UpdatedAt   time.Time     `yaml:"updated_at"`
	Entries     []ExportEntry `yaml:"entries"`
}

type ExportEntry struct {
	Type      string    `yaml:"type"`
	Content   string    `yaml:"content"`
	Timestamp time.Time `yaml:"timestamp"`
}

const exportVersion = 1

// ExportAll collects every active slot into an export document. Slots that
// fail to load or decompress are skipped with a warning rather than failing
// the whole export.
func (m *Manager) ExportAll(ctx context.Context) (*ExportDocument, error) {
	infos, err := m.ListSlots(ctx)
	if err != nil {
		return nil, err
	}

	doc := &ExportDocument{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Slots:      make([]ExportSlot, 0, len(infos)),
	}
	for _, info := range infos {
		slot, err := m.ReadMemory(ctx, info.SlotName)
		if err != nil {
			slog.Warn("skipping slot during export", "slot", info.SlotName, "error", err)
			continue
		}
		es := ExportSlot{
			SlotName:    slot.SlotName,
			Description: slot.Description,
			Tags:        slot.Tags,
			GroupPath:   slot.GroupPath,
			CreatedAt:   slot.CreatedAt,
			UpdatedAt:   slot.UpdatedAt,
			Entries:     make([]ExportEntry, 0, len(slot.Entries)),
		}
		for _, e := range slot.Entries {
			es.Entries = append(es.Entries, ExportEntry{
				Type:      e.Type,
				Content:   e.Content,
				Timestamp: e.Timestamp,
			})
		}
		doc.Slots = append(doc.Slots, es)
	}
	return doc, nil
}

// MarshalExport renders an export document as YAML.
func MarshalExport(doc *ExportDocument) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// UnmarshalExport parses a YAML export document.
func UnmarshalExport(data []byte) (*ExportDocument, error) {
	var doc ExportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if doc.Version == 0 || doc.Version > exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", doc.Version)
	}
	return &doc, nil
}

// ImportResult summarizes an Import run.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import writes the slots of an export document into the store. Existing
// slots are skipped unless overwrite is set. Entries are stored as-is;
// run CompressSlot afterwards to compress large imported content.
func (m *Manager) Import(ctx context.Context, doc *ExportDocument, overwrite bool) (*ImportResult, error) {
	if err := m.EnsureIndexed(ctx); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, es := range doc.Slots {
		if err := ValidateSlotName(es.SlotName); err != nil {
			return result, err
		}
		group, err := NormalizeGroupPath(es.GroupPath)
		if err != nil {
			return result, err
		}

		m.mu.Lock()
		existing, err := m.loadSlot(es.SlotName)
		if err != nil {
			m.mu.Unlock()
			return result, err
		}
		if existing != nil && !overwrite {
			m.mu.Unlock()
			result.Skipped++
			continue
		}

		slot, err := m.buildImportedSlot(es, group)
		if err != nil {
			m.mu.Unlock()
			return result, err
		}
		if err := m.persistAndIndex(slot); err != nil {
			m.mu.Unlock()
			return result, err
		}
		m.mu.Unlock()
		result.Imported++
	}
	return result, nil
}

func (m *Manager) buildImportedSlot(es ExportSlot, group string) (*memory.MemorySlot, error) {
	now := time.Now().UTC()
	createdAt := es.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := es.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	slot := &memory.MemorySlot{
		SlotName:    es.SlotName,
		Description: es.Description,
		GroupPath:   group,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	slot.AddTags(es.Tags)

	for _, ee := range es.Entries {
		if err := ValidateContent(ee.Content); err != nil {
			return nil, err
		}
		entryType := ee.Type
		if err := ValidateEntryType(entryType); err != nil {
			return nil, err
		}
		ts := ee.Timestamp
		if ts.IsZero() {
			ts = now
		}
		slot.Entries = append(slot.Entries, memory.MemoryEntry{
			ID:        uuid.NewString(),
			Type:      entryType,
			Content:   ee.Content,
			Timestamp: ts,
		})
	}
	if len(slot.Entries) == 0 {
		return nil, errors.New("import: slot has no entries")
	}
	return slot, nil
}
