package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/memvault/internal/storage"
)

// jsonResult marshals v as indented JSON tool output.
func jsonResult(v interface{}) *Result {
	data, _ := json.MarshalIndent(v, "", "  ")
	return NewResult(string(data))
}

// MemorySaveTool writes content into a named slot.
type MemorySaveTool struct {
	mgr *storage.Manager
}

func NewMemorySaveTool(mgr *storage.Manager) *MemorySaveTool {
	return &MemorySaveTool{mgr: mgr}
}

func (t *MemorySaveTool) Name() string { return "memory_save" }

func (t *MemorySaveTool) Description() string {
	return "Save content into a named memory slot. A manual save replaces the slot's current content (slots are a current buffer); entry_type=auto_summary appends instead."
}

func (t *MemorySaveTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to write (1-100 chars, no path or shell characters)",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Text to store (up to 10 MB)",
			},
			"entry_type": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"manual_save", "auto_summary"},
				"description": "manual_save replaces the slot; auto_summary appends (default: manual_save)",
			},
		},
		"required": []string{"slot_name", "content"},
	}
}

func (t *MemorySaveTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	content := argString(args, "content")
	if name == "" || content == "" {
		return ErrorResult("slot_name and content are required")
	}

	slot, err := t.mgr.SaveMemory(ctx, name, content, argString(args, "entry_type"))
	if err != nil {
		return ErrorResult(fmt.Sprintf("save failed: %v", err)).WithError(err)
	}

	return jsonResult(map[string]interface{}{
		"slot_name":   slot.SlotName,
		"entry_count": len(slot.Entries),
		"updated_at":  slot.UpdatedAt,
	})
}

// MemoryReadTool returns a slot with entries decompressed.
type MemoryReadTool struct {
	mgr *storage.Manager
}

func NewMemoryReadTool(mgr *storage.Manager) *MemoryReadTool {
	return &MemoryReadTool{mgr: mgr}
}

func (t *MemoryReadTool) Name() string { return "memory_read" }

func (t *MemoryReadTool) Description() string {
	return "Read a memory slot's entries (decompressed), tags, and group."
}

func (t *MemoryReadTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to read",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryReadTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	slot, err := t.mgr.ReadMemory(ctx, name)
	if err != nil {
		return ErrorResult(fmt.Sprintf("read failed: %v", err)).WithError(err)
	}
	return jsonResult(slot)
}

// MemoryListTool lists all active slots.
type MemoryListTool struct {
	mgr *storage.Manager
}

func NewMemoryListTool(mgr *storage.Manager) *MemoryListTool {
	return &MemoryListTool{mgr: mgr}
}

func (t *MemoryListTool) Name() string { return "memory_list" }

func (t *MemoryListTool) Description() string {
	return "List active memory slots with entry counts, tags, groups, and sizes."
}

func (t *MemoryListTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *MemoryListTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	infos, err := t.mgr.ListSlots(ctx)
	if err != nil {
		return ErrorResult(fmt.Sprintf("list failed: %v", err)).WithError(err)
	}
	return jsonResult(map[string]interface{}{
		"slots": infos,
		"count": len(infos),
	})
}

// MemoryDeleteTool removes a slot permanently.
type MemoryDeleteTool struct {
	mgr *storage.Manager
}

func NewMemoryDeleteTool(mgr *storage.Manager) *MemoryDeleteTool {
	return &MemoryDeleteTool{mgr: mgr}
}

func (t *MemoryDeleteTool) Name() string { return "memory_delete" }

func (t *MemoryDeleteTool) Description() string {
	return "Delete a memory slot permanently. Idempotent: deleting a missing slot reports deleted=false."
}

func (t *MemoryDeleteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to delete",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryDeleteTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	deleted, err := t.mgr.DeleteSlot(ctx, name)
	if err != nil {
		return ErrorResult(fmt.Sprintf("delete failed: %v", err)).WithError(err)
	}
	return jsonResult(map[string]interface{}{
		"slot_name": name,
		"deleted":   deleted,
	})
}

// MemoryTagTool adds or removes slot tags.
type MemoryTagTool struct {
	mgr *storage.Manager
}

func NewMemoryTagTool(mgr *storage.Manager) *MemoryTagTool {
	return &MemoryTagTool{mgr: mgr}
}

func (t *MemoryTagTool) Name() string { return "memory_tag" }

func (t *MemoryTagTool) Description() string {
	return "Add and/or remove tags on a memory slot. Tags are lowercase labels used for search filtering."
}

func (t *MemoryTagTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to modify",
			},
			"add": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Tags to add",
			},
			"remove": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Tags to remove",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryTagTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	add := argStringSlice(args, "add")
	remove := argStringSlice(args, "remove")
	if name == "" {
		return ErrorResult("slot_name is required")
	}
	if len(add) == 0 && len(remove) == 0 {
		return ErrorResult("nothing to do: provide add and/or remove")
	}

	var err error
	if len(add) > 0 {
		if _, err = t.mgr.TagSlot(ctx, name, add); err != nil {
			return ErrorResult(fmt.Sprintf("tag failed: %v", err)).WithError(err)
		}
	}
	var slot interface{}
	if len(remove) > 0 {
		if slot, err = t.mgr.UntagSlot(ctx, name, remove); err != nil {
			return ErrorResult(fmt.Sprintf("untag failed: %v", err)).WithError(err)
		}
	}
	if slot == nil {
		slot, err = t.mgr.ReadMemory(ctx, name)
		if err != nil {
			return ErrorResult(fmt.Sprintf("tag failed: %v", err)).WithError(err)
		}
	}
	return jsonResult(slot)
}

// MemoryGroupTool assigns a slot to a hierarchical group.
type MemoryGroupTool struct {
	mgr *storage.Manager
}

func NewMemoryGroupTool(mgr *storage.Manager) *MemoryGroupTool {
	return &MemoryGroupTool{mgr: mgr}
}

func (t *MemoryGroupTool) Name() string { return "memory_group" }

func (t *MemoryGroupTool) Description() string {
	return "Assign a memory slot to a hierarchical group path (e.g. 'projects/alpha'), or clear it with an empty path."
}

func (t *MemoryGroupTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to modify",
			},
			"group_path": map[string]interface{}{
				"type":        "string",
				"description": "Relative group path with forward slashes; empty clears the group",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryGroupTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	slot, err := t.mgr.SetGroup(ctx, name, argString(args, "group_path"))
	if err != nil {
		return ErrorResult(fmt.Sprintf("group failed: %v", err)).WithError(err)
	}
	return jsonResult(map[string]interface{}{
		"slot_name":  slot.SlotName,
		"group_path": slot.GroupPath,
	})
}
