// Package record defines the immutable record snapshot shared by the codec,
// the table and the coordinator.
package record

import (
	"fmt"

	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
)

// Record is one row of the table. A Record is never modified after it is
// built; every change produces a new Record with a fresh stamp.
type Record struct {
	number  int
	stamp   serial.Number
	deleted bool
	fields  []schema.Value
}

// New builds a record. The fields slice is copied.
func New(number int, stamp serial.Number, deleted bool, fields []schema.Value) *Record {
	f := make([]schema.Value, len(fields))
	copy(f, fields)
	return &Record{
		number:  number,
		stamp:   stamp,
		deleted: deleted,
		fields:  f,
	}
}

// Number is the record's slot index.
func (r *Record) Number() int { return r.number }

// Stamp is the version stamp of this snapshot.
func (r *Record) Stamp() serial.Number { return r.stamp }

// Deleted reports whether the slot holds a deleted record.
func (r *Record) Deleted() bool { return r.deleted }

// NumFields returns the number of field values.
func (r *Record) NumFields() int { return len(r.fields) }

// Field returns the value of field i.
func (r *Record) Field(i int) schema.Value { return r.fields[i] }

// Fields returns a copy of the field values.
func (r *Record) Fields() []schema.Value {
	out := make([]schema.Value, len(r.fields))
	copy(out, r.fields)
	return out
}

// Merge returns a new snapshot with the non-nil entries of values laid over
// the current field values. The result carries the given stamp and deleted
// flag.
func (r *Record) Merge(values []schema.Value, stamp serial.Number, deleted bool) (*Record, error) {
	if values != nil && len(values) != len(r.fields) {
		return nil, fmt.Errorf("record %d has %d fields, got %d values", r.number, len(r.fields), len(values))
	}
	merged := make([]schema.Value, len(r.fields))
	copy(merged, r.fields)
	for i, v := range values {
		if v != nil {
			merged[i] = v
		}
	}
	return &Record{
		number:  r.number,
		stamp:   stamp,
		deleted: deleted,
		fields:  merged,
	}, nil
}

// Conforms checks that the record has exactly one value of the right type per
// schema field.
func (r *Record) Conforms(s *schema.Schema) error {
	if len(r.fields) != s.NumFields() {
		return fmt.Errorf("record %d has %d fields, schema has %d", r.number, len(r.fields), s.NumFields())
	}
	for i, v := range r.fields {
		if v == nil {
			return fmt.Errorf("record %d field %q is empty", r.number, s.Field(i).Name)
		}
		if v.Type() != s.TypeAt(i) {
			return fmt.Errorf("record %d field %q is %s, want %s", r.number, s.Field(i).Name, v.Type(), s.TypeAt(i))
		}
	}
	return nil
}
