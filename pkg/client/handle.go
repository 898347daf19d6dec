// Package client provides the per-client view of a record table.
//
// A Handle remembers the stamp of every record its client has seen and hands
// it to the coordinator on each lock and write, so a client that acts on old
// data is refused rather than overwriting someone else's change. Calls on one
// Handle are serialised; use one Handle per client.
package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ssargent/slotdb/pkg/coordinator"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
	"github.com/ssargent/slotdb/pkg/store"
)

// ErrClosed is returned by every call on a Handle after Close.
var ErrClosed = errors.New("client handle is closed")

// StaleError reports that the client's copy of a record is out of date. The
// client should read the record again and retry.
type StaleError struct {
	Record int
	Err    error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("record %d changed since it was last read: %v", e.Record, e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }

// LockError reports that the client does not hold the lock it needs.
type LockError struct {
	Record int
	Err    error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("record %d is not locked by this client: %v", e.Record, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// Handle is one client's session against a coordinator.
type Handle struct {
	mu     sync.Mutex
	id     store.Owner
	coord  *coordinator.Coordinator
	stamps map[int]serial.Number
	held   map[int]struct{}
	closed bool
	logger *slog.Logger
}

// New creates a handle with a fresh owner identity.
func New(coord *coordinator.Coordinator, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := store.NewOwner()
	return &Handle{
		id:     id,
		coord:  coord,
		stamps: make(map[int]serial.Number),
		held:   make(map[int]struct{}),
		logger: logger.With("client", id.String()),
	}
}

// ID returns the owner identity used for this handle's locks.
func (h *Handle) ID() store.Owner {
	return h.id
}

// Schema returns the table schema.
func (h *Handle) Schema() *schema.Schema {
	return h.coord.Schema()
}

// Read returns the field text of record n.
func (h *Handle) Read(n int) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	r, err := h.coord.GetRecord(n)
	if err != nil {
		return nil, err
	}
	h.stamps[n] = r.Stamp()
	return h.coord.FormatFields(r.Fields())
}

// Update changes record n. A nil entry leaves that field unchanged. The
// client must hold the record's lock.
func (h *Handle) Update(n int, texts []*string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	values, err := h.coord.ParseFields(texts)
	if err != nil {
		return err
	}
	stamp, err := h.coord.ModifyRecord(n, h.id, h.stamps[n], values)
	if err != nil {
		return translate(n, err)
	}
	h.stamps[n] = stamp
	return nil
}

// Delete removes record n and releases its lock. The client must hold the
// record's lock.
func (h *Handle) Delete(n int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	stamp, err := h.coord.DeleteRecord(n, h.id, h.stamps[n])
	if err != nil {
		return translate(n, err)
	}
	h.stamps[n] = stamp
	delete(h.held, n)
	return nil
}

// Find returns the numbers of live records matching criteria, one entry per
// field. A nil entry matches anything; otherwise the field must start with
// the criterion, ignoring case.
func (h *Handle) Find(criteria []*string) ([]int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	return h.coord.Find(criteria)
}

// Create stores a new record and returns its number. Nil entries take the
// field type's zero value.
func (h *Handle) Create(texts []*string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrClosed
	}

	values, err := h.coord.ParseFields(texts)
	if err != nil {
		return 0, err
	}
	r, err := h.coord.CreateRecord(values)
	if err != nil {
		return 0, err
	}
	h.stamps[r.Number()] = r.Stamp()
	return r.Number(), nil
}

// Lock blocks until the client holds record n's lock. A record the client
// has never seen is locked at its current state.
func (h *Handle) Lock(n int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	known, seen := h.stamps[n]
	if !seen {
		r, err := h.coord.GetRecord(n)
		if err != nil {
			return err
		}
		known = r.Stamp()
	}

	stamp, err := h.coord.Lock(n, h.id, known)
	if err != nil {
		return translate(n, err)
	}
	h.stamps[n] = stamp
	h.held[n] = struct{}{}
	return nil
}

// Unlock releases record n's lock.
func (h *Handle) Unlock(n int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	if err := h.coord.Unlock(n, h.id, h.stamps[n]); err != nil {
		return translate(n, err)
	}
	delete(h.held, n)
	return nil
}

// IsLocked reports whether any client holds record n's lock.
func (h *Handle) IsLocked(n int) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false, ErrClosed
	}
	return h.coord.IsLocked(n)
}

// Held returns the numbers of the records this client has locked.
func (h *Handle) Held() []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]int, 0, len(h.held))
	for n := range h.held {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Close releases every lock the client still holds. Later calls on the
// handle return ErrClosed; closing again is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var result *multierror.Error
	for n := range h.held {
		r, err := h.coord.GetRecord(n)
		if err == nil {
			err = h.coord.Unlock(n, h.id, r.Stamp())
		}
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) && !errors.Is(err, store.ErrNotLocked) {
			result = multierror.Append(result, fmt.Errorf("record %d: %w", n, err))
			continue
		}
		delete(h.held, n)
		h.logger.Debug("released lock on close", "record", n)
	}
	return result.ErrorOrNil()
}

// translate turns the coordinator's stale and ownership errors into the
// client-facing error types. Other errors pass through unchanged.
func translate(n int, err error) error {
	switch {
	case errors.Is(err, store.ErrStale):
		return &StaleError{Record: n, Err: err}
	case errors.Is(err, store.ErrNotLocked):
		return &LockError{Record: n, Err: err}
	default:
		return err
	}
}
