package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/models"
)

func TestStudentPatchOnlyTouchesPresentFields(t *testing.T) {
	dob, err := models.ParseDate("2012-01-01")
	require.NoError(t, err)
	in := StudentInputFrom(models.Student{
		StudentID:   "S001",
		FirstName:   "Ana",
		Grade:       5,
		Section:     "B",
		DateOfBirth: dob,
		IsActive:    true,
	})

	var patch StudentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"grade":6,"is_active":false}`), &patch))
	patch.Apply(&in)

	assert.Equal(t, 6, in.Grade)
	assert.Equal(t, "S001", in.StudentID)
	assert.Equal(t, "Ana", in.FirstName)
	assert.Equal(t, "2012-01-01", in.DateOfBirth)
	require.NotNil(t, in.IsActive)
	assert.False(t, *in.IsActive)
}

func TestBookPatchPriceAcceptsNumberOrString(t *testing.T) {
	in := BookInputFrom(models.Book{Title: "Go", Price: "10.00", Quantity: 3, AvailableQuantity: 2})

	var patch BookPatch
	require.NoError(t, json.Unmarshal([]byte(`{"price":12.5}`), &patch))
	patch.Apply(&in)
	assert.Equal(t, json.Number("12.5"), in.Price)
	assert.Equal(t, 3, *in.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"price":"7.25","quantity":0}`), &patch))
	patch.Apply(&in)
	assert.Equal(t, json.Number("7.25"), in.Price)
	assert.Equal(t, 0, *in.Quantity)
}

func TestUserInputFromDropsPassword(t *testing.T) {
	in := UserInputFrom(models.User{Username: "jdoe", PasswordHash: "hash", UserType: models.UserTypeTeacher})
	assert.Empty(t, in.Password)
	assert.Equal(t, "teacher", in.UserType)
}
