package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/slotdb/pkg/coordinator"
	"github.com/ssargent/slotdb/pkg/store"
)

// StatsResponse is the table statistics plus the open session count
type StatsResponse struct {
	store.TableStats
	Sessions int `json:"sessions"`
}

// Server holds the API server state
type Server struct {
	coord    *coordinator.Coordinator
	sessions *sessionRegistry
	config   ServerConfig
	metrics  *Metrics
	logger   *slog.Logger
}

// NewServer creates a new API server
func NewServer(coord *coordinator.Coordinator, config ServerConfig, metrics *Metrics) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		coord:    coord,
		sessions: newSessionRegistry(coord, logger, metrics.SetSessions),
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleOpenSession godoc
//
//	@Summary		Open a session
//	@Description	Create a client session. Pass the returned ID in X-Session-ID on record requests.
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionResponse
//	@Router			/sessions [post]
//	@Security		ApiKeyAuth
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	h := s.sessions.Open()
	sendStatus(w, SessionResponse{SessionID: h.ID().String()}, http.StatusCreated)
}

// handleCloseSession godoc
//
//	@Summary		Close a session
//	@Description	End a client session and release every lock it holds
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/sessions/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	found, err := s.sessions.Close(chi.URLParam(r, "id"))
	if !found {
		sendError(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Session closed"})
}

// handleSchema godoc
//
//	@Summary		Table schema
//	@Description	List the table's fields in order with their type, width and flags
//	@Tags			table
//	@Produce		json
//	@Success		200	{array}	schema.FieldDetails
//	@Router			/schema [get]
//	@Security		ApiKeyAuth
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.coord.Schema().Fields())
}

// handleStats godoc
//
//	@Summary		Table statistics
//	@Description	Count record slots by state and open sessions
//	@Tags			table
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.coord.Stats()
	s.metrics.UpdateTableStats(stats)
	sendSuccess(w, StatsResponse{TableStats: stats, Sessions: s.sessions.Len()})
}

// handleCreate godoc
//
//	@Summary		Create a record
//	@Description	Store a new record, reusing a deleted slot when one is free
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			X-Session-ID	header		string			true	"Session ID"
//	@Param			request			body		FieldsRequest	true	"Field values"
//	@Success		201				{object}	RecordResponse
//	@Failure		400				{object}	map[string]string
//	@Failure		500				{object}	map[string]string
//	@Router			/records [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req FieldsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h := handleFrom(r)
	start := time.Now()
	n, err := h.Create(req.Fields)
	s.metrics.RecordOperation("create", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}

	fields, err := h.Read(n)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendStatus(w, RecordResponse{Number: n, Fields: fields}, http.StatusCreated)
}

// handleSearch godoc
//
//	@Summary		Find records
//	@Description	Return live records whose fields start with the given criteria, ignoring case. A null criterion matches anything.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			X-Session-ID	header		string			true	"Session ID"
//	@Param			request			body		SearchRequest	true	"One criterion per field"
//	@Success		200				{object}	SearchResponse
//	@Failure		400				{object}	map[string]string
//	@Router			/records/search [post]
//	@Security		ApiKeyAuth
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	numbers, err := handleFrom(r).Find(req.Criteria)
	s.metrics.RecordOperation("find", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}
	if numbers == nil {
		numbers = []int{}
	}
	sendSuccess(w, SearchResponse{Records: numbers})
}

// handleRead godoc
//
//	@Summary		Read a record
//	@Description	Return a record's fields. The session remembers the version it saw.
//	@Tags			records
//	@Produce		json
//	@Param			X-Session-ID	header		string	true	"Session ID"
//	@Param			n				path		int		true	"Record number"
//	@Success		200				{object}	RecordResponse
//	@Failure		404				{object}	map[string]string
//	@Router			/records/{n} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	n, ok := recordNumber(w, r)
	if !ok {
		return
	}

	start := time.Now()
	fields, err := handleFrom(r).Read(n)
	s.metrics.RecordOperation("read", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, RecordResponse{Number: n, Fields: fields})
}

// handleUpdate godoc
//
//	@Summary		Update a record
//	@Description	Change a locked record. A null field is left unchanged.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			X-Session-ID	header		string			true	"Session ID"
//	@Param			n				path		int				true	"Record number"
//	@Param			request			body		FieldsRequest	true	"Field values"
//	@Success		200				{object}	RecordResponse
//	@Failure		400				{object}	map[string]string
//	@Failure		404				{object}	map[string]string
//	@Failure		409				{object}	map[string]string
//	@Failure		412				{object}	map[string]string
//	@Router			/records/{n} [put]
//	@Security		ApiKeyAuth
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	n, ok := recordNumber(w, r)
	if !ok {
		return
	}
	var req FieldsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h := handleFrom(r)
	start := time.Now()
	err := h.Update(n, req.Fields)
	s.metrics.RecordOperation("update", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}

	fields, err := h.Read(n)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, RecordResponse{Number: n, Fields: fields})
}

// handleDelete godoc
//
//	@Summary		Delete a record
//	@Description	Delete a locked record and release its lock
//	@Tags			records
//	@Produce		json
//	@Param			X-Session-ID	header		string	true	"Session ID"
//	@Param			n				path		int		true	"Record number"
//	@Success		200				{object}	map[string]string
//	@Failure		404				{object}	map[string]string
//	@Failure		409				{object}	map[string]string
//	@Failure		412				{object}	map[string]string
//	@Router			/records/{n} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	n, ok := recordNumber(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := handleFrom(r).Delete(n)
	s.metrics.RecordOperation("delete", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Record deleted"})
}

// handleLock godoc
//
//	@Summary		Lock a record
//	@Description	Wait until the session holds the record's lock. Refused if the record changed since the session last read it.
//	@Tags			locks
//	@Produce		json
//	@Param			X-Session-ID	header		string	true	"Session ID"
//	@Param			n				path		int		true	"Record number"
//	@Success		200				{object}	LockResponse
//	@Failure		404				{object}	map[string]string
//	@Failure		409				{object}	map[string]string
//	@Router			/records/{n}/lock [post]
//	@Security		ApiKeyAuth
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	n, ok := recordNumber(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := handleFrom(r).Lock(n)
	s.metrics.RecordLockWait(time.Since(start))
	s.metrics.RecordOperation("lock", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, LockResponse{Record: n, Locked: true, Held: true})
}

// handleUnlock godoc
//
//	@Summary		Unlock a record
//	@Description	Release a lock the session holds
//	@Tags			locks
//	@Produce		json
//	@Param			X-Session-ID	header		string	true	"Session ID"
//	@Param			n				path		int		true	"Record number"
//	@Success		200				{object}	LockResponse
//	@Failure		404				{object}	map[string]string
//	@Failure		409				{object}	map[string]string
//	@Failure		412				{object}	map[string]string
//	@Router			/records/{n}/lock [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	n, ok := recordNumber(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := handleFrom(r).Unlock(n)
	s.metrics.RecordOperation("unlock", err, time.Since(start))
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, LockResponse{Record: n})
}

// handleLockStatus godoc
//
//	@Summary		Lock status
//	@Description	Report whether the record is locked and whether this session holds it
//	@Tags			locks
//	@Produce		json
//	@Param			X-Session-ID	header		string	true	"Session ID"
//	@Param			n				path		int		true	"Record number"
//	@Success		200				{object}	LockResponse
//	@Failure		404				{object}	map[string]string
//	@Router			/records/{n}/lock [get]
//	@Security		ApiKeyAuth
func (s *Server) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	n, ok := recordNumber(w, r)
	if !ok {
		return
	}

	h := handleFrom(r)
	locked, err := h.IsLocked(n)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	owner, err := s.coord.LockOwner(n)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendSuccess(w, LockResponse{Record: n, Locked: locked, Held: owner == h.ID()})
}

// startMetricsUpdater periodically updates table metrics until ctx is done
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.metrics.UpdateTableStats(s.coord.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func recordNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		sendCodedError(w, "Record number must be a non-negative integer", "invalid_request", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendCodedError(w, "Invalid JSON request", "invalid_request", http.StatusBadRequest)
		return false
	}
	return true
}
