package storage

import (
	"path"
	"regexp"
	"strings"
)

const (
	maxSlotNameLen = 100
	maxContentLen  = 10 * 1024 * 1024 // 10 MB
	maxGroupLen    = 500
)

// reservedNames can never be slot names; they collide with files the store
// manages itself or with Windows device names.
var reservedNames = map[string]struct{}{
	"index": {}, "archive": {}, "backup": {}, "temp": {},
	"con": {}, "prn": {}, "aux": {}, "nul": {},
}

// sqlKeywords are rejected as substrings of slot names. The store never
// touches SQL with slot names, but the names flow into the stats database
// and external tooling; cheap to reject at the door.
var sqlKeywords = []string{
	"select ", "insert ", "update ", "delete ", "drop ", "union ",
	"exec ", "--", ";",
}

var shellMetaRe = regexp.MustCompile("[;|&$`<>\"'\\\\]")

// scriptInjectionRe flags content that looks like script injection.
var scriptInjectionRe = regexp.MustCompile(`(?i)(<script\b|javascript:|vbscript:|on(?:error|load|click)\s*=|<iframe\b)`)

// ValidateSlotName checks a slot name against the naming contract:
// 1-100 chars, no path traversal, no shell metacharacters, no SQL keyword
// substrings, not a reserved name.
func ValidateSlotName(name string) error {
	if name == "" {
		return &ValidationError{Field: "slot_name", Msg: "must not be empty"}
	}
	if len(name) > maxSlotNameLen {
		return &ValidationError{Field: "slot_name", Msg: "exceeds 100 characters"}
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return &ValidationError{Field: "slot_name", Msg: "must not contain path separators or traversal"}
	}
	if shellMetaRe.MatchString(name) {
		return &ValidationError{Field: "slot_name", Msg: "contains shell metacharacters"}
	}
	lower := strings.ToLower(name)
	for _, kw := range sqlKeywords {
		if strings.Contains(lower, kw) {
			return &ValidationError{Field: "slot_name", Msg: "contains SQL keyword"}
		}
	}
	if _, reserved := reservedNames[lower]; reserved {
		return &ValidationError{Field: "slot_name", Msg: "is a reserved name"}
	}
	return nil
}

// NormalizeGroupPath validates a hierarchical group path and returns its
// normalized form: forward slashes, no empty, ".", or ".." components, not
// absolute. An empty input clears the group and is valid.
func NormalizeGroupPath(group string) (string, error) {
	if group == "" {
		return "", nil
	}
	if len(group) > maxGroupLen {
		return "", &ValidationError{Field: "group_path", Msg: "too long"}
	}

	normalized := strings.ReplaceAll(group, "\\", "/")
	if strings.HasPrefix(normalized, "/") || windowsDriveRe.MatchString(normalized) {
		return "", &ValidationError{Field: "group_path", Msg: "must be relative"}
	}

	parts := strings.Split(normalized, "/")
	for _, p := range parts {
		switch strings.TrimSpace(p) {
		case "", ".", "..":
			return "", &ValidationError{Field: "group_path", Msg: "contains empty or traversal component"}
		}
	}

	return path.Clean(normalized), nil
}

var windowsDriveRe = regexp.MustCompile(`^[A-Za-z]:`)

// ValidateContent checks entry content: 1 byte to 10 MB of text, free of
// script-injection patterns.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Msg: "must not be empty"}
	}
	if len(content) > maxContentLen {
		return &ValidationError{Field: "content", Msg: "exceeds 10 MB"}
	}
	if scriptInjectionRe.MatchString(content) {
		return &ValidationError{Field: "content", Msg: "matches script injection pattern"}
	}
	return nil
}

// ValidateEntryType accepts only the known entry types.
func ValidateEntryType(entryType string) error {
	switch entryType {
	case "manual_save", "auto_summary":
		return nil
	}
	return &ValidationError{Field: "entry_type", Msg: "must be manual_save or auto_summary"}
}
