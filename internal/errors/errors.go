package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a relicdex error code.
type ErrorCode string

const (
	ErrSourceRead         ErrorCode = "SOURCE_READ"         // 422
	ErrSubTableProcessing ErrorCode = "SUBTABLE_PROCESSING" // 422
	ErrCellRead           ErrorCode = "CELL_READ"           // 422
	ErrConfiguration      ErrorCode = "CONFIGURATION"       // 400
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrCollectionExists   ErrorCode = "COLLECTION_EXISTS"   // 409
	ErrFileTooLarge       ErrorCode = "FILE_TOO_LARGE"      // 413
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// RelicError represents a structured error with code, status, and details.
type RelicError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. It is never exposed to MCP or web clients.
	Err error
}

// Error implements the error interface.
func (e *RelicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RelicError) Unwrap() error {
	return e.Err
}

// NewSourceRead creates a 422 error for a tabular source that cannot be opened or parsed.
func NewSourceRead(path string, err error) *RelicError {
	msg := fmt.Sprintf("cannot read source %q", path)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &RelicError{
		Code:    ErrSourceRead,
		Status:  422,
		Message: msg,
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewSubTableProcessing creates a 422 error for a sheet whose rows could not be processed.
func NewSubTableProcessing(sheet string, err error) *RelicError {
	return &RelicError{
		Code:    ErrSubTableProcessing,
		Status:  422,
		Message: fmt.Sprintf("sheet %q could not be processed: %v", sheet, err),
		Details: map[string]any{"sheet": sheet},
		Err:     err,
	}
}

// NewCellRead creates a 422 error for a single unreadable cell.
// Row and col are 0-based.
func NewCellRead(sheet string, row, col int, err error) *RelicError {
	return &RelicError{
		Code:    ErrCellRead,
		Status:  422,
		Message: fmt.Sprintf("sheet %q row %d col %d: %v", sheet, row, col, err),
		Details: map[string]any{"sheet": sheet, "row": row, "col": col},
		Err:     err,
	}
}

// NewConfiguration creates a 400 error for invalid pipeline or config parameters.
func NewConfiguration(msg string) *RelicError {
	return &RelicError{
		Code:    ErrConfiguration,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *RelicError {
	return &RelicError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing collection or chunk.
func NewNotFound(kind, identifier string) *RelicError {
	return &RelicError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewCollectionExists creates a 409 error when a build targets an existing collection.
func NewCollectionExists(name string) *RelicError {
	return &RelicError{
		Code:    ErrCollectionExists,
		Status:  409,
		Message: fmt.Sprintf("collection %q already exists (use rebuild to replace it)", name),
		Details: map[string]any{"collection": name},
	}
}

// NewFileTooLarge creates a 413 error when a source file exceeds the size limit.
func NewFileTooLarge(maxBytes, actualBytes int64) *RelicError {
	return &RelicError{
		Code:    ErrFileTooLarge,
		Status:  413,
		Message: fmt.Sprintf("file exceeds maximum size: %d bytes (max %d)", actualBytes, maxBytes),
		Details: map[string]any{"max_bytes": maxBytes, "actual_bytes": actualBytes},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *RelicError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &RelicError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is a RelicError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *RelicError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}
