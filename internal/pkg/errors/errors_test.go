package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithMessageKeepsIdentity(t *testing.T) {
	err := ErrExpired.WithMessage("code expired yesterday")

	assert.True(t, stderrors.Is(err, ErrExpired))
	assert.False(t, stderrors.Is(err, ErrInvalidCode))
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "code expired yesterday", err.Error())
}

func TestAsAPIErrorUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", Forbidden("invitation is for another user"))

	apiErr, ok := AsAPIError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	_, ok = AsAPIError(stderrors.New("boom"))
	assert.False(t, ok)
}
