package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/memvault/internal/memory"
	"github.com/nextlevelbuilder/memvault/internal/storage"
)

// MemorySearchTool runs TF-IDF (or regex) search across all slots.
type MemorySearchTool struct {
	mgr *storage.Manager
}

func NewMemorySearchTool(mgr *storage.Manager) *MemorySearchTool {
	return &MemorySearchTool{mgr: mgr}
}

func (t *MemorySearchTool) Name() string { return "memory_search" }

func (t *MemorySearchTool) Description() string {
	return "Search all memory slots by relevance. Supports tag/group include-exclude filters, a date range over entry timestamps, entry-type filters, and regex mode. Returns ranked snippets."
}

func (t *MemorySearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search text, or a regular expression when use_regex is set",
			},
			"max_results": map[string]interface{}{
				"type":        "number",
				"description": "Maximum results to return, 1-100 (default: 10)",
			},
			"include_tags": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Only slots carrying at least one of these tags",
			},
			"exclude_tags": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Drop slots carrying any of these tags",
			},
			"include_groups": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Only slots whose group path contains one of these substrings",
			},
			"exclude_groups": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Drop slots whose group path contains any of these substrings",
			},
			"date_from": map[string]interface{}{
				"type":        "string",
				"description": "RFC 3339 timestamp; slots need an entry at or after this",
			},
			"date_to": map[string]interface{}{
				"type":        "string",
				"description": "RFC 3339 timestamp; slots need an entry at or before this",
			},
			"content_types": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Restrict to entry types: manual_save, auto_summary",
			},
			"case_sensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Match case exactly (default: false)",
			},
			"use_regex": map[string]interface{}{
				"type":        "boolean",
				"description": "Treat query as a regular expression (default: false)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	queryText := argString(args, "query")
	if queryText == "" {
		return ErrorResult("query is required")
	}

	query := memory.SearchQuery{
		Query:         queryText,
		IncludeTags:   argStringSlice(args, "include_tags"),
		ExcludeTags:   argStringSlice(args, "exclude_tags"),
		IncludeGroups: argStringSlice(args, "include_groups"),
		ExcludeGroups: argStringSlice(args, "exclude_groups"),
		DateFrom:      argTime(args, "date_from"),
		DateTo:        argTime(args, "date_to"),
		ContentTypes:  argStringSlice(args, "content_types"),
		MaxResults:    argInt(args, "max_results"),
		CaseSensitive: argBool(args, "case_sensitive"),
		UseRegex:      argBool(args, "use_regex"),
	}

	results, err := t.mgr.SearchMemory(ctx, query)
	if err != nil {
		return ErrorResult(fmt.Sprintf("search failed: %v", err)).WithError(err)
	}
	if len(results) == 0 {
		return NewResult("No results for query: " + queryText)
	}

	return jsonResult(map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
