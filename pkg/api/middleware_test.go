package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slotdb/pkg/client"
	"github.com/ssargent/slotdb/pkg/store"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{
			name:           "valid API key",
			apiKey:         "test-key",
			requestHeader:  "test-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing API key header",
			apiKey:         "test-key",
			requestHeader:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "test-key",
			requestHeader:  "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			handler := apiKeyMiddleware(tt.apiKey)(testHandler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestSessionMiddleware(t *testing.T) {
	server := setupTestServer(t)
	h := server.sessions.Open()

	var seen *client.Handle
	handler := sessionMiddleware(server.sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = handleFrom(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		session        string
		expectedStatus int
	}{
		{"known session", h.ID().String(), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed id", "not-a-ksuid", http.StatusUnauthorized},
		{"unknown session", store.NewOwner().String(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/records/0", nil)
			if tt.session != "" {
				req.Header.Set(SessionHeader, tt.session)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Same(t, h, seen)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: 3", store.ErrRecordNotFound), http.StatusNotFound, "record_not_found"},
		{&client.StaleError{Record: 1, Err: store.ErrStale}, http.StatusConflict, "stale"},
		{&client.LockError{Record: 1, Err: store.ErrNotLocked}, http.StatusPreconditionFailed, "not_locked"},
		{store.ErrDuplicateKey, http.StatusConflict, "duplicate_key"},
		{fmt.Errorf("%w: bad", store.ErrInvalidFields), http.StatusBadRequest, "invalid_fields"},
		{fmt.Errorf("%w: disk full", store.ErrWriteFailed), http.StatusInternalServerError, "write_failed"},
		{client.ErrClosed, http.StatusGone, "session_closed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	sendSuccess(w, map[string]string{"message": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Empty(t, response.Error)
}

func TestSendStoreError(t *testing.T) {
	w := httptest.NewRecorder()
	sendStoreError(w, fmt.Errorf("%w: 7", store.ErrRecordNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.False(t, response.Success)
	assert.Equal(t, "record_not_found", response.Code)
	assert.Contains(t, response.Error, "7")
}
