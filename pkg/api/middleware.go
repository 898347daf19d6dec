package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssargent/slotdb/pkg/client"
	"github.com/ssargent/slotdb/pkg/store"
)

type contextKey string

const handleKey contextKey = "handle"

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if apiKey != expectedKey {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionMiddleware resolves the X-Session-ID header to a client handle
func sessionMiddleware(sessions *sessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				sendError(w, "Missing "+SessionHeader+" header", http.StatusUnauthorized)
				return
			}
			h, ok := sessions.Get(id)
			if !ok {
				sendError(w, "Unknown session", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), handleKey, h)))
		})
	}
}

func handleFrom(r *http.Request) *client.Handle {
	h, _ := r.Context().Value(handleKey).(*client.Handle)
	return h
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	sendStatus(w, data, http.StatusOK)
}

// sendStatus sends a successful JSON response with the given status code
func sendStatus(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendCodedError(w, message, "", statusCode)
}

func sendCodedError(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
		Code:    code,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// sendStoreError maps store errors to a status code and a stable error code
func sendStoreError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	sendCodedError(w, err.Error(), code, status)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return http.StatusNotFound, "record_not_found"
	case errors.Is(err, store.ErrStale):
		return http.StatusConflict, "stale"
	case errors.Is(err, store.ErrNotLocked):
		return http.StatusPreconditionFailed, "not_locked"
	case errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict, "duplicate_key"
	case errors.Is(err, store.ErrInvalidFields):
		return http.StatusBadRequest, "invalid_fields"
	case errors.Is(err, client.ErrClosed):
		return http.StatusGone, "session_closed"
	case errors.Is(err, store.ErrWriteFailed):
		return http.StatusInternalServerError, "write_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
