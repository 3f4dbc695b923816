package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tagfit error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrSessionClosed     ErrorCode = "SESSION_CLOSED"      // 409
	ErrCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"   // 413
	ErrDraftTooLarge     ErrorCode = "DRAFT_TOO_LARGE"     // 413
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrTransport         ErrorCode = "TRANSPORT"           // 503
)

// TagError represents a structured error with code, status, and details.
type TagError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Cause is the underlying error, if any. Transport failures keep the
	// transport's own error here so callers can match it with errors.Is.
	Cause error
}

// Error implements the error interface.
func (e *TagError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TagError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TagError {
	return &TagError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a draft cannot be found.
func NewNotFound(identifier string) *TagError {
	return &TagError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("draft not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNameAlreadyExists creates a 409 error for draft name collisions.
func NewNameAlreadyExists(name string) *TagError {
	return &TagError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("draft with name %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewSessionClosed creates a 409 error for operations on a stopped session.
func NewSessionClosed() *TagError {
	return &TagError{
		Code:    ErrSessionClosed,
		Status:  409,
		Message: "scan session stopped before completion",
	}
}

// NewCapacityExceeded creates a 413 error when the mandatory records alone
// do not fit the effective budget of the tag.
func NewCapacityExceeded(mandatorySize, budget int) *TagError {
	shortfall := mandatorySize - budget
	return &TagError{
		Code:   ErrCapacityExceeded,
		Status: 413,
		Message: fmt.Sprintf("mandatory records need %d bytes but the tag budget is %d (%d bytes too large)",
			mandatorySize, budget, shortfall),
		Details: map[string]any{
			"mandatory_size": mandatorySize,
			"budget":         budget,
			"shortfall":      shortfall,
		},
	}
}

// NewDraftTooLarge creates a 413 error when a draft exceeds configured limits.
func NewDraftTooLarge(what string, max, actual int) *TagError {
	return &TagError{
		Code:    ErrDraftTooLarge,
		Status:  413,
		Message: fmt.Sprintf("draft exceeds maximum %s: %d (max %d)", what, actual, max),
		Details: map[string]any{"limit": what, "max": max, "actual": actual},
	}
}

// NewTransport creates a 503 error wrapping a transport failure unchanged.
func NewTransport(err error) *TagError {
	msg := "transport failure"
	if err != nil {
		msg = err.Error()
	}
	return &TagError{
		Code:    ErrTransport,
		Status:  503,
		Message: msg,
		Cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error text goes to Details.
func NewInternal(err error) *TagError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &TagError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Cause:   err,
	}
}

// Is checks if an error is a TagError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TagError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// CapacityDetails returns the mandatory size and budget carried by a
// CAPACITY_EXCEEDED error.
func CapacityDetails(err error) (mandatorySize, budget int, ok bool) {
	var tErr *TagError
	if !stderrors.As(err, &tErr) || tErr.Code != ErrCapacityExceeded {
		return 0, 0, false
	}
	mandatorySize, ok1 := tErr.Details["mandatory_size"].(int)
	budget, ok2 := tErr.Details["budget"].(int)
	return mandatorySize, budget, ok1 && ok2
}
