package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nextlevelbuilder/memvault/internal/memory"
)

// slotPath returns the on-disk path for a slot document.
func (m *Manager) slotPath(name string) string {
	return filepath.Join(m.memoryDir, name+".json")
}

// loadSlot reads and parses a slot document. A missing file returns
// (nil, nil); malformed JSON is a storage error, never silently dropped.
func (m *Manager) loadSlot(name string) (*memory.MemorySlot, error) {
	data, err := os.ReadFile(m.slotPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, storageErr("load", name, err)
	}

	var slot memory.MemorySlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, storageErr("load", name, fmt.Errorf("corrupt slot file: %w", err))
	}
	return &slot, nil
}

// saveSlot persists a slot with the backup-then-write-then-cleanup
// discipline: the previous version is renamed to .bak, the new document is
// written via a temp file and atomic rename, and only then is the backup
// removed. On any failure the backup is restored before the error returns,
// so the slot file is never half-written and a failed save never destroys
// the previous good version.
func (m *Manager) saveSlot(slot *memory.MemorySlot) error {
	if err := os.MkdirAll(m.memoryDir, 0o755); err != nil {
		return storageErr("save", slot.SlotName, err)
	}

	target := m.slotPath(slot.SlotName)
	backup := target + ".bak"

	data, err := json.MarshalIndent(slot, "", "  ")
	if err != nil {
		return storageErr("save", slot.SlotName, err)
	}

	hadPrevious := false
	if _, statErr := os.Stat(target); statErr == nil {
		if err := os.Rename(target, backup); err != nil {
			return storageErr("save", slot.SlotName, fmt.Errorf("create backup: %w", err))
		}
		hadPrevious = true
	}

	if err := writeFileAtomic(target, data, m.writeHook); err != nil {
		if hadPrevious {
			if rbErr := os.Rename(backup, target); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("restore backup: %w", rbErr))
			}
		}
		return storageErr("save", slot.SlotName, err)
	}

	if hadPrevious {
		os.Remove(backup)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target's directory and
// renames it into place. hook, when non-nil, runs between write and rename
// so tests can inject mid-save failures.
func writeFileAtomic(target string, data []byte, hook func() error) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if hook != nil {
		if err := hook(); err != nil {
			os.Remove(tmp)
			return err
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// removeSlotFile deletes a slot document and any stale backup.
// Missing files are not an error.
func (m *Manager) removeSlotFile(name string) (bool, error) {
	target := m.slotPath(name)
	err := os.Remove(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storageErr("delete", name, err)
	}
	os.Remove(target + ".bak")
	return true, nil
}
