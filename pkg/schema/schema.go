// Package schema describes the single table held by a slotdb data file.
//
// The data file header only records each field's name and byte width. The
// field types and the searchable/displayable/modifiable flags come from
// configuration, passed in as an Options value. Build joins the two into an
// immutable Schema that is shared read-only by every other package.
package schema

import (
	"errors"
	"fmt"
)

// ErrDuplicateField is returned when two header columns share a name.
var ErrDuplicateField = errors.New("duplicate field name")

// Column is a field descriptor as it appears in the file header.
type Column struct {
	Name  string
	Width int
}

// FieldDetails is the full metadata of one field.
type FieldDetails struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	MaxLength   int       `json:"max_length" yaml:"max_length"`
	Searchable  bool      `json:"searchable" yaml:"searchable"`
	Displayable bool      `json:"displayable" yaml:"displayable"`
	Modifiable  bool      `json:"modifiable" yaml:"modifiable"`
}

// FieldOptions configures the field with the given name.
type FieldOptions struct {
	Name        string
	Type        FieldType
	Searchable  bool
	Displayable bool
	Modifiable  bool
}

// Options is the type and format configuration applied to the header.
type Options struct {
	Formats Formats
	Fields  []FieldOptions
}

// DefaultOptions has the default formats and no per-field configuration, so
// every field is a searchable, displayable, modifiable string.
func DefaultOptions() Options {
	return Options{Formats: DefaultFormats()}
}

func (o Options) lookup(name string) (FieldOptions, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldOptions{}, false
}

// Schema is the immutable description of the table.
type Schema struct {
	fields  []FieldDetails
	parsers []Parser
	index   map[string]int
	formats Formats
}

// Build creates a Schema from the header columns and the configuration.
// Columns without configuration are strings with every flag set.
func Build(columns []Column, opts Options) (*Schema, error) {
	s := &Schema{
		fields:  make([]FieldDetails, 0, len(columns)),
		parsers: make([]Parser, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
		formats: opts.Formats,
	}

	for i, col := range columns {
		if _, dup := s.index[col.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, col.Name)
		}
		if col.Width <= 0 {
			return nil, fmt.Errorf("field %q has invalid width %d", col.Name, col.Width)
		}

		fo, ok := opts.lookup(col.Name)
		if !ok {
			fo = FieldOptions{
				Name:        col.Name,
				Type:        TypeString,
				Searchable:  true,
				Displayable: true,
				Modifiable:  true,
			}
		}

		parser, err := opts.Formats.Parser(fo.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", col.Name, err)
		}

		s.index[col.Name] = i
		s.parsers = append(s.parsers, parser)
		s.fields = append(s.fields, FieldDetails{
			Name:        col.Name,
			Type:        fo.Type,
			MaxLength:   col.Width,
			Searchable:  fo.Searchable,
			Displayable: fo.Displayable,
			Modifiable:  fo.Modifiable,
		})
	}

	return s, nil
}

// NumFields returns the number of fields in every record.
func (s *Schema) NumFields() int {
	return len(s.fields)
}

// Fields returns a copy of the ordered field metadata.
func (s *Schema) Fields() []FieldDetails {
	out := make([]FieldDetails, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the metadata of field i.
func (s *Schema) Field(i int) FieldDetails {
	return s.fields[i]
}

// IndexOf returns the position of the named field.
func (s *Schema) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// TypeOf returns the type of the named field.
func (s *Schema) TypeOf(name string) (FieldType, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.fields[i].Type, true
}

// TypeAt returns the type of field i.
func (s *Schema) TypeAt(i int) FieldType {
	return s.fields[i].Type
}

// Parser returns the parser for field i.
func (s *Schema) Parser(i int) Parser {
	return s.parsers[i]
}

// Parsers returns the per-field parsers in field order.
func (s *Schema) Parsers() []Parser {
	out := make([]Parser, len(s.parsers))
	copy(out, s.parsers)
	return out
}

// Formats returns the formats the parsers were built with.
func (s *Schema) Formats() Formats {
	return s.formats
}

// Columns returns the header view of the schema.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.fields))
	for i, f := range s.fields {
		out[i] = Column{Name: f.Name, Width: f.MaxLength}
	}
	return out
}

// DataWidth is the summed byte width of all fields, excluding the status flag.
func (s *Schema) DataWidth() int {
	total := 0
	for _, f := range s.fields {
		total += f.MaxLength
	}
	return total
}
