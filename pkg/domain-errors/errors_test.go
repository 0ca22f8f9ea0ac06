package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "registration not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through wrap chain", func(t *testing.T) {
		cause := New(CodeConflict, "certificate already present")
		err := Wrap(cause, CodeInternal, "issue failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeForbidden, "role check failed"))
		assert.True(t, Is(err, CodeForbidden))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, CodeInternal, "nothing happened"))
}

func TestMessage(t *testing.T) {
	err := New(CodeValidation, "progress step must be between 1 and 5")
	assert.Equal(t, "progress step must be between 1 and 5", Message(err))

	wrapped := Wrap(errors.New("pq: duplicate key"), CodeConflict, "email already registered")
	assert.Equal(t, "email already registered", Message(wrapped))

	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeConflict:           http.StatusConflict,
		CodeInvariantViolation: http.StatusConflict,
		CodeGenerationFailed:   http.StatusBadGateway,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
