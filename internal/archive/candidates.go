package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nextlevelbuilder/memvault/internal/memory"
)

// FindCandidates scans the active memory directory (not the archive) for
// slots whose updated_at is older than the inactivity cutoff and whose
// entry count meets the minimum. Candidates come back sorted by inactivity
// descending. Corrupt slot files are skipped with a warning.
func (m *Manager) FindCandidates(ctx context.Context, memoryDir string, daysInactive, minEntries int) ([]Candidate, error) {
	if daysInactive <= 0 {
		daysInactive = 30
	}
	if minEntries <= 0 {
		minEntries = 1
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysInactive)

	entries, err := os.ReadDir(memoryDir)
	if err != nil {
		return nil, &Error{Op: "candidates", Err: err}
	}

	var candidates []Candidate
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(memoryDir, name))
		if err != nil {
			slog.Warn("skipping unreadable slot during candidate scan", "file", name, "error", err)
			continue
		}
		var slot memory.MemorySlot
		if err := json.Unmarshal(data, &slot); err != nil {
			slog.Warn("skipping corrupt slot during candidate scan", "file", name, "error", err)
			continue
		}

		if !slot.UpdatedAt.Before(cutoff) || len(slot.Entries) < minEntries {
			continue
		}

		candidates = append(candidates, Candidate{
			SlotName:     slot.SlotName,
			EntryCount:   len(slot.Entries),
			UpdatedAt:    slot.UpdatedAt,
			DaysInactive: int(time.Since(slot.UpdatedAt).Hours() / 24),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DaysInactive > candidates[j].DaysInactive
	})
	return candidates, nil
}
