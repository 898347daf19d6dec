// Package coordinator applies client requests to a record table.
//
// The Coordinator is where the store's invariants are enforced: a request
// may only touch a live record, writes and unlocks require the caller to hold
// the record's lock, and a caller whose last-seen stamp is older than the
// record's current stamp is rejected as stale. All checks run before any
// change is made, so a rejected request leaves memory and disk untouched.
package coordinator

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ssargent/slotdb/pkg/record"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
	"github.com/ssargent/slotdb/pkg/store"
)

// Coordinator orchestrates reads, writes and locks against one table.
type Coordinator struct {
	table  *store.RecordTable
	schema *schema.Schema
	logger *slog.Logger
}

// New creates a coordinator for table.
func New(table *store.RecordTable, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		table:  table,
		schema: table.Schema(),
		logger: logger,
	}
}

// Schema returns the table schema.
func (c *Coordinator) Schema() *schema.Schema {
	return c.schema
}

// FieldParsers returns the per-field parsers in field order.
func (c *Coordinator) FieldParsers() []schema.Parser {
	return c.schema.Parsers()
}

// Stats returns table statistics.
func (c *Coordinator) Stats() store.TableStats {
	return c.table.Stats()
}

// ShutDown closes the underlying table file.
func (c *Coordinator) ShutDown() error {
	return c.table.ShutDown()
}

// GetRecord returns the live record n.
func (c *Coordinator) GetRecord(n int) (*record.Record, error) {
	r, ok := c.table.GetRecord(n)
	if !ok || r.Deleted() {
		return nil, fmt.Errorf("%w: %d", store.ErrRecordNotFound, n)
	}
	return r, nil
}

// MatchingRecords returns every live record matching criteria. Criteria has
// one entry per field; a nil entry matches anything and a non-nil entry
// matches fields whose text starts with it, ignoring case. The result is a
// snapshot taken without locks and may be stale by the time it is used.
func (c *Coordinator) MatchingRecords(criteria []*string) ([]*record.Record, error) {
	if len(criteria) != c.schema.NumFields() {
		return nil, fmt.Errorf("%w: %d criteria for %d fields", store.ErrInvalidFields, len(criteria), c.schema.NumFields())
	}

	prefixes := make([]string, len(criteria))
	for i, crit := range criteria {
		if crit != nil {
			prefixes[i] = strings.ToLower(*crit)
		}
	}

	var matches []*record.Record
	for _, r := range c.table.Records() {
		if !r.Deleted() && c.matches(r, criteria, prefixes) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func (c *Coordinator) matches(r *record.Record, criteria []*string, prefixes []string) bool {
	for i, crit := range criteria {
		if crit == nil {
			continue
		}
		text, err := c.schema.Parser(i).Format(r.Field(i))
		if err != nil {
			return false
		}
		if !strings.HasPrefix(strings.ToLower(text), prefixes[i]) {
			return false
		}
	}
	return true
}

// Find returns the numbers of the records MatchingRecords would return.
func (c *Coordinator) Find(criteria []*string) ([]int, error) {
	matches, err := c.MatchingRecords(criteria)
	if err != nil {
		return nil, err
	}
	numbers := make([]int, len(matches))
	for i, r := range matches {
		numbers[i] = r.Number()
	}
	return numbers, nil
}

// CreateRecord stores a new record. Nil values take the field type's zero.
func (c *Coordinator) CreateRecord(values []schema.Value) (*record.Record, error) {
	if err := c.validate(values); err != nil {
		return nil, err
	}
	fields := make([]schema.Value, len(values))
	for i, v := range values {
		if v == nil {
			v = c.schema.Parser(i).Zero()
		}
		fields[i] = v
	}

	r, err := c.table.CreateRecord(fields)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("record created", "record", r.Number())
	return r, nil
}

// Lock blocks until owner holds record n's lock and returns the record's
// current stamp. known is the stamp the caller last saw; the lock is refused
// if the record changed since then. Locking a record the owner already holds
// returns at once.
func (c *Coordinator) Lock(n int, owner store.Owner, known serial.Number) (serial.Number, error) {
	if owner == store.NoOwner {
		return serial.Number{}, store.ErrInvalidOwner
	}

	// Checked up front so a doomed request does not queue for the lock.
	live, err := c.checkLive(n, known)
	if err != nil {
		return serial.Number{}, err
	}

	holder, err := c.table.LockOwner(n)
	if err != nil {
		return serial.Number{}, err
	}
	if holder == owner {
		return live.Stamp(), nil
	}

	c.logger.Debug("waiting for record lock", "record", n, "owner", owner.String())
	if err := c.table.Lock(n, owner); err != nil {
		return serial.Number{}, err
	}

	// The record may have changed while we waited.
	live, err = c.checkLive(n, known)
	if err != nil {
		if unlockErr := c.table.Unlock(n, owner); unlockErr != nil {
			c.logger.Warn("releasing rejected lock", "record", n, "error", unlockErr)
		}
		c.logger.Debug("lock rejected after wait", "record", n, "error", err)
		return serial.Number{}, err
	}
	return live.Stamp(), nil
}

// Unlock releases owner's lock on record n.
func (c *Coordinator) Unlock(n int, owner store.Owner, known serial.Number) error {
	if _, err := c.checkHeld(n, owner, known); err != nil {
		return err
	}
	return c.table.Unlock(n, owner)
}

// IsLocked reports whether any owner holds record n's lock.
func (c *Coordinator) IsLocked(n int) (bool, error) {
	if _, err := c.GetRecord(n); err != nil {
		return false, err
	}
	holder, err := c.table.LockOwner(n)
	if err != nil {
		return false, err
	}
	return holder != store.NoOwner, nil
}

// LockOwner returns the holder of record n's lock.
func (c *Coordinator) LockOwner(n int) (store.Owner, error) {
	return c.table.LockOwner(n)
}

// ModifyRecord lays the non-nil values over record n and returns the new
// stamp. owner must hold the lock and known must not be older than the
// record's stamp.
func (c *Coordinator) ModifyRecord(n int, owner store.Owner, known serial.Number, values []schema.Value) (serial.Number, error) {
	if err := c.validate(values); err != nil {
		return serial.Number{}, err
	}
	current, err := c.checkHeld(n, owner, known)
	if err != nil {
		return serial.Number{}, err
	}

	updated, err := current.Merge(values, serial.Next(), false)
	if err != nil {
		return serial.Number{}, fmt.Errorf("%w: %v", store.ErrInvalidFields, err)
	}
	if err := c.table.AddModifiedRecord(updated); err != nil {
		return serial.Number{}, err
	}
	return updated.Stamp(), nil
}

// DeleteRecord marks record n deleted, releases owner's lock and makes the
// slot available for reuse. It returns the stamp of the deleted snapshot.
func (c *Coordinator) DeleteRecord(n int, owner store.Owner, known serial.Number) (serial.Number, error) {
	current, err := c.checkHeld(n, owner, known)
	if err != nil {
		return serial.Number{}, err
	}

	deleted, err := current.Merge(nil, serial.Next(), true)
	if err != nil {
		return serial.Number{}, err
	}
	if err := c.table.AddModifiedRecord(deleted); err != nil {
		return serial.Number{}, err
	}
	if err := c.table.Unlock(n, owner); err != nil {
		return serial.Number{}, err
	}
	c.table.AddToDeleteList(n)
	c.logger.Debug("record deleted", "record", n)
	return deleted.Stamp(), nil
}

// ParseFields converts client text into typed values. A nil entry stays nil.
func (c *Coordinator) ParseFields(texts []*string) ([]schema.Value, error) {
	if len(texts) != c.schema.NumFields() {
		return nil, fmt.Errorf("%w: %d values for %d fields", store.ErrInvalidFields, len(texts), c.schema.NumFields())
	}
	values := make([]schema.Value, len(texts))
	for i, text := range texts {
		if text == nil {
			continue
		}
		v, err := c.schema.Parser(i).Parse(*text)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", store.ErrInvalidFields, c.schema.Field(i).Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// FormatFields converts typed values into client text.
func (c *Coordinator) FormatFields(values []schema.Value) ([]string, error) {
	if len(values) != c.schema.NumFields() {
		return nil, fmt.Errorf("%w: %d values for %d fields", store.ErrInvalidFields, len(values), c.schema.NumFields())
	}
	texts := make([]string, len(values))
	for i, v := range values {
		text, err := c.schema.Parser(i).Format(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", store.ErrInvalidFields, c.schema.Field(i).Name, err)
		}
		texts[i] = text
	}
	return texts, nil
}

// validate checks the field count and the type of every non-nil value.
// Values other than strings must also fit their column once formatted;
// only strings may be cut to the width.
func (c *Coordinator) validate(values []schema.Value) error {
	if len(values) != c.schema.NumFields() {
		return fmt.Errorf("%w: %d values for %d fields", store.ErrInvalidFields, len(values), c.schema.NumFields())
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		field := c.schema.Field(i)
		if v.Type() != field.Type {
			return fmt.Errorf("%w: field %q wants %s, got %s",
				store.ErrInvalidFields, field.Name, field.Type, v.Type())
		}
		if field.Type == schema.TypeString {
			continue
		}
		text, err := c.schema.Parser(i).Format(v)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", store.ErrInvalidFields, field.Name, err)
		}
		if utf8.RuneCountInString(text) > field.MaxLength {
			return fmt.Errorf("%w: field %q value %q is wider than %d",
				store.ErrInvalidFields, field.Name, text, field.MaxLength)
		}
	}
	return nil
}

// checkLive returns record n if it is live and not newer than known.
func (c *Coordinator) checkLive(n int, known serial.Number) (*record.Record, error) {
	r, err := c.GetRecord(n)
	if err != nil {
		return nil, err
	}
	if known.Before(r.Stamp()) {
		return nil, fmt.Errorf("%w: %d", store.ErrStale, n)
	}
	return r, nil
}

// checkHeld returns record n if owner holds its lock and known is current.
func (c *Coordinator) checkHeld(n int, owner store.Owner, known serial.Number) (*record.Record, error) {
	holder, err := c.table.LockOwner(n)
	if err != nil {
		return nil, err
	}
	if owner == store.NoOwner || holder != owner {
		return nil, fmt.Errorf("%w: %d", store.ErrNotLocked, n)
	}
	return c.checkLive(n, known)
}
