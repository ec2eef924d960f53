package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("create: %w", Conflict("isbn", "123"))
	assert.True(t, stderrors.Is(err, ErrConflict))
	assert.False(t, stderrors.Is(err, ErrNotFound))
}

func TestAccessDeniedStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, AccessDenied("students", "create", false).Status)
	assert.Equal(t, http.StatusForbidden, AccessDenied("students", "create", true).Status)
}

func TestValidationSingleFieldMessage(t *testing.T) {
	err := Validation(FieldError{Field: "grade", Kind: KindRange, Reason: "must be between 1 and 12"})
	assert.Equal(t, "grade: must be between 1 and 12", err.Message)
	fields, ok := err.Details.([]FieldError)
	require.True(t, ok)
	assert.Len(t, fields, 1)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	wrapped := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, wrapped.Code)
	assert.Equal(t, http.StatusInternalServerError, wrapped.Status)

	detailed := NotFound("book", "42")
	assert.Same(t, detailed, FromError(detailed))
}
