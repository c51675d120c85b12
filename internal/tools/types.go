package tools

import (
	"context"
	"errors"

	"github.com/nextlevelbuilder/memvault/internal/archive"
	"github.com/nextlevelbuilder/memvault/internal/storage"
	"github.com/nextlevelbuilder/memvault/pkg/protocol"
)

// Tool is the interface every memvault tool implements. The MCP server
// bridges these onto protocol tool definitions.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Result is the unified return type from tool execution. Code carries the
// protocol error code on failures.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
	Code    string `json:"code,omitempty"`
	Err     error  `json:"-"` // internal error, not serialized
}

func NewResult(content string) *Result {
	return &Result{Content: content}
}

func ErrorResult(message string) *Result {
	return &Result{Content: message, IsError: true, Code: protocol.ErrInvalidRequest}
}

// WithError attaches the underlying error and classifies it onto a
// protocol error code.
func (r *Result) WithError(err error) *Result {
	r.Err = err
	r.Code = codeFor(err)
	return r
}

func codeFor(err error) string {
	var verr *storage.ValidationError
	if errors.As(err, &verr) {
		return protocol.ErrValidation
	}
	if errors.Is(err, storage.ErrSlotNotFound) || errors.Is(err, archive.ErrNotArchived) {
		return protocol.ErrNotFound
	}
	if errors.Is(err, storage.ErrSlotExists) {
		return protocol.ErrAlreadyExists
	}
	if errors.Is(err, storage.ErrArchivalUnavailable) {
		return protocol.ErrUnavailable
	}
	var aerr *archive.Error
	if errors.As(err, &aerr) {
		return protocol.ErrArchive
	}
	var serr *storage.StorageError
	if errors.As(err, &serr) {
		return protocol.ErrStorage
	}
	return protocol.ErrInternal
}
