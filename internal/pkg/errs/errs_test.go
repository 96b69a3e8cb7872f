package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorKnownCode(t *testing.T) {
	customErr := NewError(ErrNotAuthorized)
	require.NotNil(t, customErr)

	assert.Equal(t, ErrNotAuthorized, customErr.Code)
	assert.NotEmpty(t, customErr.Message)
	assert.Equal(t, http.StatusForbidden, customErr.Status)
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	customErr := NewError(99999)
	require.NotNil(t, customErr)
	assert.Equal(t, ErrUnknown, customErr.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotAMember, CodeOf(NewError(ErrNotAMember)))

	wrapped := fmt.Errorf("outer: %w", NewError(ErrDuplicateRequest))
	assert.Equal(t, ErrDuplicateRequest, CodeOf(wrapped))

	assert.Equal(t, ErrUnknown, CodeOf(errors.New("plain error")))
}

func TestAs(t *testing.T) {
	original := NewError(ErrNotFound)
	assert.Same(t, original, As(original))

	converted := As(errors.New("plain error"))
	require.NotNil(t, converted)
	assert.Equal(t, ErrUnknown, converted.Code)
}

func TestErrorStringCarriesCodeAndStatus(t *testing.T) {
	customErr := NewError(ErrEmptyMessage)
	msg := customErr.Error()
	assert.Contains(t, msg, fmt.Sprintf("%d", ErrEmptyMessage))
	assert.Contains(t, msg, customErr.Message)
}
