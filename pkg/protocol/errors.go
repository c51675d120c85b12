package protocol

// Error codes surfaced at the tool boundary. The storage core raises typed
// errors; handlers map them onto these codes when formatting responses.
const (
	ErrInvalidRequest = "INVALID_REQUEST"
	ErrNotFound       = "NOT_FOUND"
	ErrAlreadyExists  = "ALREADY_EXISTS"
	ErrValidation     = "VALIDATION_FAILED"
	ErrStorage        = "STORAGE_FAILURE"
	ErrArchive        = "ARCHIVE_FAILURE"

	ErrResourceExhausted = "RESOURCE_EXHAUSTED"
	ErrUnavailable       = "UNAVAILABLE"
	ErrInternal          = "INTERNAL"
)
