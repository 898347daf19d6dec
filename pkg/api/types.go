package api

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionHeader carries the session ID on record requests.
const SessionHeader = "X-Session-ID"

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// FieldsRequest carries field text in schema order. A null entry means
// "leave unchanged" on update and "zero value" on create.
type FieldsRequest struct {
	Fields []*string `json:"fields"`
}

// SearchRequest carries one criterion per field. A null entry matches anything.
type SearchRequest struct {
	Criteria []*string `json:"criteria"`
}

// RecordResponse is one record as field text.
type RecordResponse struct {
	Number int      `json:"number"`
	Fields []string `json:"fields"`
}

// SearchResponse lists matching record numbers.
type SearchResponse struct {
	Records []int `json:"records"`
}

// SessionResponse identifies a new session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// LockResponse describes a record's lock from the caller's point of view.
type LockResponse struct {
	Record int  `json:"record"`
	Locked bool `json:"locked"`
	Held   bool `json:"held"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port     int
	Bind     string
	APIKey   string
	Logger   *slog.Logger
	Registry *prometheus.Registry // nil means the default registry
}
