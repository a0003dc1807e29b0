package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := Precondition("trip_not_quoted", "trip has not been quoted")
	assert.Equal(t, "trip_not_quoted: trip has not been quoted", err.Error())

	cause := errors.New("connection refused")
	wrapped := Dependency("redis unavailable", cause)
	assert.Contains(t, wrapped.Error(), "dependency_unavailable")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Dependency("storage down", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOfThroughChain(t *testing.T) {
	err := NotFound("trip_not_found", "no such trip")
	wrapped := fmt.Errorf("loading trip: %w", err)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "trip_not_found", CodeOf(wrapped))
	assert.Equal(t, "no such trip", MessageOf(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Empty(t, CodeOf(err))
	assert.Equal(t, "plain", MessageOf(err))
	assert.Empty(t, MessageOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindValidation:   http.StatusBadRequest,
		KindPrecondition: http.StatusConflict,
		KindConflict:     http.StatusConflict,
		KindDependency:   http.StatusInternalServerError,
		KindUnknown:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind))
	}
}

func TestDependencyCode(t *testing.T) {
	err := Dependency("vehicle master catalog unavailable", errors.New("timeout"))
	require.Equal(t, KindDependency, err.Kind)
	assert.Equal(t, "dependency_unavailable", err.Code)
}
