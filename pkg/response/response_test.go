package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", customError.InvalidInput("amount must be positive"), http.StatusBadRequest},
		{"not found", customError.NotFound("loan", "L-1"), http.StatusNotFound},
		{"invalid state", customError.InvalidState("loan is closed"), http.StatusConflict},
		{"conflict", customError.ConcurrencyConflict("L-1"), http.StatusConflict},
		{"database", customError.WrapDatabaseError(errors.New("timeout")), http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestFromError_ClientError(t *testing.T) {
	rec := httptest.NewRecorder()

	FromError(rec, customError.InvalidState("loan %s is closed", "L-1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, customError.ErrCodeInvalidState, body.Code)
	assert.Contains(t, body.Error, "L-1 is closed")
}

func TestFromError_InternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()

	FromError(rec, customError.WrapDatabaseError(errors.New("password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, customError.ErrCodeDatabaseError, body.Code)
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()

	Created(rec, map[string]string{"id": "L-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, map[string]any{"id": "L-1"}, body.Data)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/loans", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
