package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorString_WithCause(t *testing.T) {
	cause := fmt.Errorf("redis: connection refused")
	appErr := &AppError{Code: "SERVICE_UNAVAILABLE", Message: "queue backend unreachable", Err: cause}
	assert.Contains(t, appErr.Error(), "SERVICE_UNAVAILABLE")
	assert.Contains(t, appErr.Error(), "queue backend unreachable")
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestAppError_ErrorString_WithoutCause(t *testing.T) {
	appErr := &AppError{Code: "INVALID_INPUT", Message: "bad sort key"}
	assert.Equal(t, "INVALID_INPUT: bad sort key", appErr.Error())
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("unknown queue name")
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, "unknown queue name", err.Message)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUnavailable_KeepsCauseInChain(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Unavailable("cache backend unreachable", cause)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "cache backend unreachable", err.Message)
}

func TestUnavailable_NilCause(t *testing.T) {
	err := Unavailable("search engine down", nil)
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.NotContains(t, err.Error(), "nil")
}
