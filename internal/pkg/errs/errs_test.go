package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_KnownCode(t *testing.T) {
	err := NewError(ErrHistoryUnavailable)

	assert.Equal(t, ErrHistoryUnavailable, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "Failed to fetch messages.", err.Message)
}

func TestNewError_DefaultsStatusToOK(t *testing.T) {
	err := NewError(ErrAvatarTypeInvalid)

	assert.Equal(t, http.StatusOK, err.Status)
}

func TestNewError_FormatsDetails(t *testing.T) {
	err := NewError(ErrFileSizeTooLarge, 2)

	assert.Equal(t, "Avatar must be between 1 byte and 2 MB.", err.Message)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	err := NewError(9999)

	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewError_ReturnsIndependentCopies(t *testing.T) {
	a := NewError(ErrFileSizeTooLarge, 2)
	b := NewError(ErrFileSizeTooLarge, 5)

	assert.NotEqual(t, a.Message, b.Message)
	assert.Equal(t, "Avatar must be between 1 byte and %d MB.", errorMap[ErrFileSizeTooLarge].Message)
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	coded := NewError(ErrInvalidParams)
	wrapped := fmt.Errorf("binding: %w", coded)
	assert.Same(t, coded, From(wrapped))

	plain := From(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrUnknown, plain.Code)
}
