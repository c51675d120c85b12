package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/memvault/internal/storage"
)

// MemoryArchiveTool moves a slot to cold storage.
type MemoryArchiveTool struct {
	mgr *storage.Manager
}

func NewMemoryArchiveTool(mgr *storage.Manager) *MemoryArchiveTool {
	return &MemoryArchiveTool{mgr: mgr}
}

func (t *MemoryArchiveTool) Name() string { return "memory_archive" }

func (t *MemoryArchiveTool) Description() string {
	return "Archive a slot to cold storage (compressed). The slot leaves active memory; restore it with memory_restore."
}

func (t *MemoryArchiveTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to archive",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Optional note recorded in the archive ledger",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryArchiveTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	res, err := t.mgr.ArchiveSlot(ctx, name, argString(args, "reason"))
	if err != nil {
		return ErrorResult(fmt.Sprintf("archive failed: %v", err)).WithError(err)
	}
	return jsonResult(res)
}

// MemoryRestoreTool brings an archived slot back to active memory.
type MemoryRestoreTool struct {
	mgr *storage.Manager
}

func NewMemoryRestoreTool(mgr *storage.Manager) *MemoryRestoreTool {
	return &MemoryRestoreTool{mgr: mgr}
}

func (t *MemoryRestoreTool) Name() string { return "memory_restore" }

func (t *MemoryRestoreTool) Description() string {
	return "Restore an archived slot back into active memory, decompressed and re-indexed."
}

func (t *MemoryRestoreTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Archived slot to restore",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryRestoreTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	slot, err := t.mgr.RestoreFromArchive(ctx, name)
	if err != nil {
		return ErrorResult(fmt.Sprintf("restore failed: %v", err)).WithError(err)
	}
	return jsonResult(map[string]interface{}{
		"slot_name":   slot.SlotName,
		"entry_count": len(slot.Entries),
		"is_archived": slot.IsArchived,
	})
}

// MemoryArchiveCandidatesTool lists slots eligible for archival.
type MemoryArchiveCandidatesTool struct {
	mgr *storage.Manager
}

func NewMemoryArchiveCandidatesTool(mgr *storage.Manager) *MemoryArchiveCandidatesTool {
	return &MemoryArchiveCandidatesTool{mgr: mgr}
}

func (t *MemoryArchiveCandidatesTool) Name() string { return "memory_archive_candidates" }

func (t *MemoryArchiveCandidatesTool) Description() string {
	return "List slots eligible for archival by inactivity and entry count, most inactive first."
}

func (t *MemoryArchiveCandidatesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"days_inactive": map[string]interface{}{
				"type":        "number",
				"description": "Minimum days since last update (default: 30)",
			},
			"min_entries": map[string]interface{}{
				"type":        "number",
				"description": "Minimum entry count (default: 1)",
			},
		},
	}
}

func (t *MemoryArchiveCandidatesTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	candidates, err := t.mgr.ArchiveCandidates(ctx, argInt(args, "days_inactive"), argInt(args, "min_entries"))
	if err != nil {
		return ErrorResult(fmt.Sprintf("candidate scan failed: %v", err)).WithError(err)
	}
	return jsonResult(map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}
