package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesByCode(t *testing.T) {
	err := fmt.Errorf("update application: %w", Clone(ErrConflict, "application was modified concurrently"))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "CONFLICT", ErrConflict.Code)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(sql.ErrNoRows, ErrNotFound.Code, ErrNotFound.Status, "scholar not found")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, "scholar not found: sql: no rows in result set", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := Clone(ErrForbidden, "office mismatch")
	assert.Same(t, typed, FromError(fmt.Errorf("wrapped: %w", typed)))

	timeout := FromError(fmt.Errorf("count scholars: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusServiceUnavailable, timeout.Status)

	unknown := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, unknown.Code)
	assert.Equal(t, "internal server error", unknown.Message)
}
