package api

import (
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/slotdb/pkg/client"
	"github.com/ssargent/slotdb/pkg/coordinator"
)

// sessionRegistry maps session IDs to client handles. A session ID is the
// handle's owner identity, so lock owners can be traced back to sessions.
type sessionRegistry struct {
	mu       sync.Mutex
	handles  map[ksuid.KSUID]*client.Handle
	coord    *coordinator.Coordinator
	logger   *slog.Logger
	onChange func(open int)
}

func newSessionRegistry(coord *coordinator.Coordinator, logger *slog.Logger, onChange func(int)) *sessionRegistry {
	if onChange == nil {
		onChange = func(int) {}
	}
	return &sessionRegistry{
		handles:  make(map[ksuid.KSUID]*client.Handle),
		coord:    coord,
		logger:   logger,
		onChange: onChange,
	}
}

// Open creates a new session.
func (s *sessionRegistry) Open() *client.Handle {
	h := client.New(s.coord, s.logger)

	s.mu.Lock()
	s.handles[h.ID()] = h
	open := len(s.handles)
	s.mu.Unlock()

	s.onChange(open)
	s.logger.Info("session opened", "session", h.ID().String())
	return h
}

// Get returns the session with the given ID.
func (s *sessionRegistry) Get(id string) (*client.Handle, bool) {
	key, err := ksuid.Parse(id)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[key]
	return h, ok
}

// Close ends a session and releases its locks.
func (s *sessionRegistry) Close(id string) (bool, error) {
	key, err := ksuid.Parse(id)
	if err != nil {
		return false, nil
	}

	s.mu.Lock()
	h, ok := s.handles[key]
	delete(s.handles, key)
	open := len(s.handles)
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	s.onChange(open)
	s.logger.Info("session closed", "session", id)
	return true, h.Close()
}

// CloseAll ends every session.
func (s *sessionRegistry) CloseAll() error {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[ksuid.KSUID]*client.Handle)
	s.mu.Unlock()

	var result *multierror.Error
	for _, h := range handles {
		if err := h.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.onChange(0)
	return result.ErrorOrNil()
}

// Len returns the number of open sessions.
func (s *sessionRegistry) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
