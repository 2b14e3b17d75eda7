package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/isdelr/referral-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body detailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewError(models.ErrConflict, "email already exists"), http.StatusConflict},
		{models.ErrInvalidReferral, http.StatusConflict},
		{fmt.Errorf("%w: your code: 'abc'", models.ErrAlreadyHasCode), http.StatusConflict},
		{models.ErrInvalidCredentials, http.StatusUnauthorized},
		{models.ErrInvalidToken, http.StatusUnauthorized},
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrInvalidKey, http.StatusNotFound},
		{models.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("known error keeps its message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), models.NewError(models.ErrConflict, "username already exists"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "username already exists", decodeDetail(t, rec))
	})

	t.Run("unauthorized sets challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), models.NewError(models.ErrInvalidCredentials, "invalid password"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", decodeDetail(t, rec))
	})
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ok     bool
		detail string
	}{
		{"valid", `{"username":"alice","email":"alice@example.com","password":"pw"}`, true, ""},
		{"malformed", `{"username":`, false, "Invalid request body"},
		{"missing field", `{"username":"alice","email":"alice@example.com"}`, false, "password is required"},
		{"bad email", `{"username":"alice","email":"nope","password":"pw"}`, false, "email is not a valid email address"},
		{"long username", `{"username":"` + strings.Repeat("a", 101) + `","email":"alice@example.com","password":"pw"}`, false, "username must be at most 100 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/registration", strings.NewReader(tt.body))

			var payload RegisterPayload
			ok := decodeJSON(rec, req, &payload)

			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
				assert.Equal(t, tt.detail, decodeDetail(t, rec))
			}
		})
	}
}
