package storage

import (
	"errors"
	"fmt"
)

// ErrSlotNotFound reports a read of a slot that has no on-disk document.
var ErrSlotNotFound = errors.New("slot not found")

// ErrSlotExists reports a restore that would overwrite an active slot.
var ErrSlotExists = errors.New("slot already exists")

// ErrArchivalUnavailable reports an archive operation on a manager that was
// built without an archival backend.
var ErrArchivalUnavailable = errors.New("archival not configured")

// ValidationError rejects malformed input before any I/O happens.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// StorageError wraps a failed persistence operation with enough context
// for the tool layer to format a user-facing message.
type StorageError struct {
	Op   string
	Slot string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s (slot %q): %v", e.Op, e.Slot, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, slot string, err error) error {
	return &StorageError{Op: op, Slot: slot, Err: err}
}
