package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	err := Wrap(CodeUsernameTaken, "username already exists", nil)
	require.True(t, errors.Is(err, ErrUsernameTaken))
	require.False(t, errors.Is(err, ErrValidation))

	wrapped := fmt.Errorf("signup: %w", err)
	require.True(t, errors.Is(wrapped, ErrUsernameTaken))
	assert.Equal(t, CodeUsernameTaken, CodeOf(wrapped))
}

func TestBackend(t *testing.T) {
	require.NoError(t, Backend(nil))

	cause := errors.New("deadline exceeded")
	err := Backend(cause)
	require.True(t, errors.Is(err, ErrBackendRequest))
	require.True(t, errors.Is(err, cause))
	assert.Equal(t, "deadline exceeded", err.Error())

	auth := New(CodeAuth, "bad credentials")
	assert.Same(t, auth, Backend(auth))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeSessionExpired, CodeOf(ErrSessionExpired))
	assert.Equal(t, "session_expired", CodeSessionExpired.String())
}
