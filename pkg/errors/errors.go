package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same error code, so callers can use
// errors.Is(err, ErrConflict) against cloned or detailed instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Validation failure kinds.
const (
	KindRange    = "range"
	KindFormat   = "format"
	KindRequired = "required"
	KindChoice   = "choice"
)

// ConflictDetail identifies the unique key that was already claimed.
type ConflictDetail struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// NotFoundDetail identifies the missing record.
type NotFoundDetail struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// AccessDetail identifies the denied operation.
type AccessDetail struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// RetryDetail names the operation that ran out of attempts.
type RetryDetail struct {
	Operation string `json:"operation"`
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrAccessDenied       = New("ACCESS_DENIED", http.StatusForbidden, "access denied")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrExhaustedRetries   = New("EXHAUSTED_RETRIES", http.StatusServiceUnavailable, "could not allocate a unique code")
	ErrRateLimited        = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Validation builds a validation error listing every failing field.
func Validation(fields ...FieldError) *Error {
	msg := ErrValidation.Message
	if len(fields) == 1 {
		msg = fmt.Sprintf("%s: %s", fields[0].Field, fields[0].Reason)
	}
	return &Error{Code: ErrValidation.Code, Status: ErrValidation.Status, Message: msg, Details: fields}
}

// Conflict reports a duplicate value for a unique field.
func Conflict(field, value string) *Error {
	return &Error{
		Code:    ErrConflict.Code,
		Status:  ErrConflict.Status,
		Message: fmt.Sprintf("%s %q already exists", field, value),
		Details: ConflictDetail{Field: field, Value: value},
	}
}

// NotFound reports a missing record.
func NotFound(entity, id string) *Error {
	return &Error{
		Code:    ErrNotFound.Code,
		Status:  ErrNotFound.Status,
		Message: fmt.Sprintf("%s not found", entity),
		Details: NotFoundDetail{Entity: entity, ID: id},
	}
}

// AccessDenied reports a policy denial. Anonymous callers get 401 so clients know to authenticate.
func AccessDenied(resource, action string, authenticated bool) *Error {
	status := http.StatusForbidden
	if !authenticated {
		status = http.StatusUnauthorized
	}
	return &Error{
		Code:    ErrAccessDenied.Code,
		Status:  status,
		Message: fmt.Sprintf("not allowed to %s %s", action, resource),
		Details: AccessDetail{Resource: resource, Action: action},
	}
}

// ExhaustedRetries reports that unique code generation gave up.
func ExhaustedRetries(operation string) *Error {
	return &Error{
		Code:    ErrExhaustedRetries.Code,
		Status:  ErrExhaustedRetries.Status,
		Message: fmt.Sprintf("%s: retry budget exhausted", operation),
		Details: RetryDetail{Operation: operation},
	}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
