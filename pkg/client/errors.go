package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed call as reported by the server.
type APIError struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// FieldError is one entry of a VALIDATION_ERROR's details.
type FieldError struct {
	Field  string `json:"field"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// FieldErrors decodes validation details; it returns nil for other codes.
func (e *APIError) FieldErrors() []FieldError {
	if e.Code != "VALIDATION_ERROR" || len(e.Details) == 0 {
		return nil
	}
	var fields []FieldError
	if err := json.Unmarshal(e.Details, &fields); err != nil {
		return nil
	}
	return fields
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func decodeError(status int, body []byte) error {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		env.Error.Status = status
		return env.Error
	}
	return &APIError{Status: status, Code: "HTTP_" + fmt.Sprint(status), Message: http.StatusText(status)}
}
