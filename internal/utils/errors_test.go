package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "test error message",
	}

	assert.Equal(t, "test error message", err.Error())
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("months_ahead must be positive, got %d", -1)

	assert.Error(t, err)
	assert.Equal(t, "months_ahead must be positive, got -1", err.Error())

	validationErr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "months_ahead must be positive, got -1", validationErr.Message)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestAnalysisError_IsMatchesKind(t *testing.T) {
	err := NewNotFoundError("dataset %q not found", "copper")

	assert.Equal(t, `dataset "copper" not found`, err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrOutOfRange))

	wrapped := fmt.Errorf("load failed: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestAnalysisError_WithDetail(t *testing.T) {
	base := NewOutOfRangeError("horizon 30 exceeds 12")
	detailed := base.WithDetail("max_horizon", 12)

	assert.Nil(t, base.Details)
	assert.Equal(t, 12, detailed.Details["max_horizon"])
	assert.Equal(t, base.Message, detailed.Message)
	assert.Equal(t, map[string]interface{}{"max_horizon": 12}, DetailsOf(fmt.Errorf("x: %w", detailed)))
}

func TestKindOf_UnknownError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Nil(t, DetailsOf(errors.New("boom")))
}

func TestAnalysisError_EmptyMessageFallsBackToKind(t *testing.T) {
	assert.Equal(t, "division_undefined", ErrDivisionUndefined.Error())
}
