package apperr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planboard/internal/apperr"
)

func TestClassifiers(t *testing.T) {
	assert.True(t, apperr.IsValidation(apperr.Validation("title", "title is required")))
	assert.True(t, apperr.IsNotFound(apperr.NotFound("task", "t1")))
	assert.True(t, apperr.IsConflict(apperr.Conflict("task has subtasks")))
	assert.True(t, apperr.IsAccess(apperr.Access("editor")))

	err := apperr.NotFound("plan", "p1")
	assert.False(t, apperr.IsValidation(err))
	assert.False(t, apperr.IsConflict(err))
}

func TestStorageWrapsCause(t *testing.T) {
	assert.NoError(t, apperr.Storage("find", nil))

	cause := errors.New("connection reset")
	err := apperr.Storage("insert tasks", cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert tasks")
}

func TestValidationCarriesField(t *testing.T) {
	var ve *apperr.ValidationError
	require.ErrorAs(t, apperr.Validation("due_date", "due_date must not be before start_date"), &ve)
	assert.Equal(t, "due_date", ve.Field)
}
