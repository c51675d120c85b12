package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/memvault/internal/storage"
)

// MemoryCompressTool compresses a slot's large entries in place.
type MemoryCompressTool struct {
	mgr *storage.Manager
}

func NewMemoryCompressTool(mgr *storage.Manager) *MemoryCompressTool {
	return &MemoryCompressTool{mgr: mgr}
}

func (t *MemoryCompressTool) Name() string { return "memory_compress" }

func (t *MemoryCompressTool) Description() string {
	return "Compress a slot's entries above the size threshold (gzip). Already-compressed entries are skipped unless force is set."
}

func (t *MemoryCompressTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to compress",
			},
			"force": map[string]interface{}{
				"type":        "boolean",
				"description": "Re-compress entries that are already compressed",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryCompressTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	res, err := t.mgr.CompressSlot(ctx, name, argBool(args, "force"))
	if err != nil {
		return ErrorResult(fmt.Sprintf("compress failed: %v", err)).WithError(err)
	}
	return jsonResult(res)
}

// MemoryDecompressTool restores a slot's entries to raw text.
type MemoryDecompressTool struct {
	mgr *storage.Manager
}

func NewMemoryDecompressTool(mgr *storage.Manager) *MemoryDecompressTool {
	return &MemoryDecompressTool{mgr: mgr}
}

func (t *MemoryDecompressTool) Name() string { return "memory_decompress" }

func (t *MemoryDecompressTool) Description() string {
	return "Decompress every compressed entry in a slot back to raw text."
}

func (t *MemoryDecompressTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"slot_name": map[string]interface{}{
				"type":        "string",
				"description": "Slot to decompress",
			},
		},
		"required": []string{"slot_name"},
	}
}

func (t *MemoryDecompressTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	name := argString(args, "slot_name")
	if name == "" {
		return ErrorResult("slot_name is required")
	}

	res, err := t.mgr.DecompressSlot(ctx, name)
	if err != nil {
		return ErrorResult(fmt.Sprintf("decompress failed: %v", err)).WithError(err)
	}
	return jsonResult(res)
}
