package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ssargent/slotdb/pkg/codec"
	"github.com/ssargent/slotdb/pkg/record"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
)

// RecordTable is the authoritative in-memory view of every record and its
// lock. It writes changes through to the table file but does not check
// staleness or who is calling; that is the coordinator's job.
type RecordTable struct {
	file     *codec.TableFile
	schema   *schema.Schema
	records  sync.Map // int -> *LockableRecord
	next     atomic.Int64
	recycler *SlotRecycler
	logger   *slog.Logger
}

// Open opens the table file at config.Path, loads every record and returns
// the table. A load cancelled through ctx or config.Progress still returns the
// records read so far.
func Open(ctx context.Context, config TableConfig) (*RecordTable, error) {
	file := codec.NewTableFile(codec.TableFileConfig{
		Schema:     config.Schema,
		SyncWrites: config.SyncWrites,
		Logger:     config.Logger,
	})
	if err := file.Open(config.Path); err != nil {
		return nil, fmt.Errorf("failed to open table file: %w", err)
	}

	loaded, err := file.LoadAll(ctx, config.Progress)
	if err != nil {
		file.ShutDown()
		return nil, fmt.Errorf("failed to load table file: %w", err)
	}

	t := NewRecordTable(file, loaded.Schema, config.Logger)
	for _, r := range loaded.Records {
		t.AddExistingRecord(r)
	}
	// Ascending pushes make the highest deleted slot the first to be reused.
	for _, r := range loaded.Records {
		if r.Deleted() {
			t.AddToDeleteList(r.Number())
		}
	}
	return t, nil
}

// NewRecordTable creates an empty table over a loaded file.
func NewRecordTable(file *codec.TableFile, s *schema.Schema, logger *slog.Logger) *RecordTable {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RecordTable{
		file:     file,
		schema:   s,
		recycler: NewSlotRecycler(),
		logger:   logger,
	}
}

// Schema returns the table schema.
func (t *RecordTable) Schema() *schema.Schema {
	return t.schema
}

// AddExistingRecord registers a record read from disk without writing it.
func (t *RecordTable) AddExistingRecord(r *record.Record) {
	t.records.Store(r.Number(), newLockableRecord(r))
	for {
		cur := t.next.Load()
		if int64(r.Number()) < cur || t.next.CompareAndSwap(cur, int64(r.Number())+1) {
			return
		}
	}
}

// AddModifiedRecord writes r to disk and then makes it the slot's snapshot.
func (t *RecordTable) AddModifiedRecord(r *record.Record) error {
	slot, ok := t.slot(r.Number())
	if !ok {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, r.Number())
	}
	if err := t.file.WriteRecord(r); err != nil {
		return err
	}
	slot.replace(r)
	return nil
}

// CreateRecord stores a new live record, reusing a freed slot when one is
// available and otherwise appending at the next fresh record number.
func (t *RecordTable) CreateRecord(fields []schema.Value) (*record.Record, error) {
	if n, ok := t.recycler.Pop(); ok {
		slot, exists := t.slot(n)
		if exists {
			r := record.New(n, serial.Next(), false, fields)
			if err := t.file.WriteRecord(r); err != nil {
				t.recycler.Push(n)
				return nil, err
			}
			slot.replace(r)
			t.logger.Debug("reused record slot", "record", n)
			return r, nil
		}
	}

	n := int(t.next.Add(1) - 1)
	r := record.New(n, serial.Next(), false, fields)
	if err := t.file.WriteRecord(r); err != nil {
		// Keep the number accounted for so it can be handed out again.
		t.records.Store(n, newLockableRecord(record.New(n, serial.Next(), true, zeroFields(t.schema))))
		t.recycler.Push(n)
		return nil, err
	}
	t.records.Store(n, newLockableRecord(r))
	return r, nil
}

// GetRecord returns the current snapshot of record n. Deleted records are
// returned too; callers decide how to treat them.
func (t *RecordTable) GetRecord(n int) (*record.Record, bool) {
	slot, ok := t.slot(n)
	if !ok {
		return nil, false
	}
	return slot.Record(), true
}

// Records returns the current snapshot of every slot in record number order.
func (t *RecordTable) Records() []*record.Record {
	limit := int(t.next.Load())
	out := make([]*record.Record, 0, limit)
	for n := 0; n < limit; n++ {
		if slot, ok := t.slot(n); ok {
			out = append(out, slot.Record())
		}
	}
	return out
}

// Lock blocks until record n's lock is free and then gives it to owner.
func (t *RecordTable) Lock(n int, owner Owner) error {
	slot, ok := t.slot(n)
	if !ok {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, n)
	}
	slot.Lock(owner)
	return nil
}

// Unlock releases record n if owner holds it; otherwise it does nothing.
func (t *RecordTable) Unlock(n int, owner Owner) error {
	slot, ok := t.slot(n)
	if !ok {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, n)
	}
	slot.Unlock(owner)
	return nil
}

// LockOwner returns the holder of record n's lock, NoOwner if unlocked.
func (t *RecordTable) LockOwner(n int) (Owner, error) {
	slot, ok := t.slot(n)
	if !ok {
		return NoOwner, fmt.Errorf("%w: %d", ErrRecordNotFound, n)
	}
	return slot.Owner(), nil
}

// AddToDeleteList makes slot n available for reuse. The record must already
// be unlocked, since the slot may be handed out immediately.
func (t *RecordTable) AddToDeleteList(n int) {
	t.recycler.Push(n)
	t.logger.Debug("record slot freed", "record", n)
}

// Stats counts slots by state.
func (t *RecordTable) Stats() TableStats {
	stats := TableStats{FreeSlots: t.recycler.Len()}
	t.records.Range(func(_, value any) bool {
		slot := value.(*LockableRecord)
		stats.Slots++
		if slot.Record().Deleted() {
			stats.Deleted++
		} else {
			stats.Live++
		}
		if slot.Owner() != NoOwner {
			stats.Locked++
		}
		return true
	})
	return stats
}

// ShutDown closes the table file. In-flight writes after this are dropped.
func (t *RecordTable) ShutDown() error {
	return t.file.ShutDown()
}

func (t *RecordTable) slot(n int) (*LockableRecord, bool) {
	v, ok := t.records.Load(n)
	if !ok {
		return nil, false
	}
	return v.(*LockableRecord), true
}

func zeroFields(s *schema.Schema) []schema.Value {
	out := make([]schema.Value, s.NumFields())
	for i := range out {
		out[i] = s.Parser(i).Zero()
	}
	return out
}
