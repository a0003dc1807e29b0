package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"freightops/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestSuccess(t *testing.T) {
	env := Success(map[string]string{"id": "abc"})
	assert.True(t, env.OK)
	assert.NotNil(t, env.Data)
	assert.Empty(t, env.Code)
	assert.Empty(t, env.Message)
}

func TestFail(t *testing.T) {
	env := Fail("trip_not_found", "no such trip")
	assert.False(t, env.OK)
	assert.Equal(t, "trip_not_found", env.Code)
	assert.Equal(t, "no such trip", env.Message)
	assert.Nil(t, env.Data)
}

func TestFromErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", apperr.Unauthorized("invalid_credentials", "bad login"), http.StatusUnauthorized, "invalid_credentials"},
		{"forbidden", apperr.Forbidden("forbidden", "role not allowed"), http.StatusForbidden, "forbidden"},
		{"not found", apperr.NotFound("trip_not_found", "no such trip"), http.StatusNotFound, "trip_not_found"},
		{"validation", apperr.Validation("unknown_vehicle_type", "bad type"), http.StatusBadRequest, "unknown_vehicle_type"},
		{"precondition", apperr.Precondition("trip_not_quoted", "not quoted"), http.StatusConflict, "trip_not_quoted"},
		{"conflict", apperr.Conflict("stage_conflict", "lost race"), http.StatusConflict, "stage_conflict"},
		{"dependency", apperr.Dependency("redis down", errors.New("dial tcp")), http.StatusInternalServerError, "dependency_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := FromError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.False(t, env.OK)
			assert.Equal(t, tc.wantCode, env.Code)
		})
	}
}

func TestFromErrorWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", apperr.NotFound("payment_not_found", "no such payment"))
	status, env := FromError(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "payment_not_found", env.Code)
	assert.Equal(t, "no such payment", env.Message)
}

func TestFromErrorMasksUnknown(t *testing.T) {
	status, env := FromError(errors.New("pq: deadlock detected"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", env.Code)
	assert.NotContains(t, env.Message, "deadlock")
}
