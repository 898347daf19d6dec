package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/slotdb/pkg/record"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
)

const (
	// MagicCookie identifies a slotdb table file.
	MagicCookie uint32 = 0x00000202

	// ValidFlag marks a live record slot.
	ValidFlag uint16 = 0x0000
	// DeletedFlag marks a deleted record slot.
	DeletedFlag uint16 = 0x8000

	statusWidth = 2
)

var (
	// ErrCorruptFile is returned when the file does not follow the format.
	ErrCorruptFile = errors.New("corrupt table file")
	// ErrWriteFailed is returned when a validated record could not be written.
	ErrWriteFailed = errors.New("table file write failed")
	// ErrNotOpen is returned when no file has been opened.
	ErrNotOpen = errors.New("table file is not open")
	// ErrNotLoaded is returned by WriteRecord before LoadAll has parsed the header.
	ErrNotLoaded = errors.New("table file header has not been loaded")
)

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptFile, fmt.Sprintf(format, args...))
}

// header is the parsed file header.
type header struct {
	dataOffset int64
	columns    []schema.Column
}

func readHeader(r io.Reader) (*header, error) {
	var fixed struct {
		Magic  uint32
		Offset uint32
		Count  uint16
	}
	if err := binary.Read(r, binary.BigEndian, &fixed); err != nil {
		return nil, shortRead("header", err)
	}
	if fixed.Magic != MagicCookie {
		return nil, corrupt("bad magic cookie 0x%08x", fixed.Magic)
	}

	h := &header{
		dataOffset: int64(fixed.Offset),
		columns:    make([]schema.Column, 0, fixed.Count),
	}
	stored := int64(4 + 4 + 2)
	for i := 0; i < int(fixed.Count); i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			return nil, shortRead("field descriptor", err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, shortRead("field name", err)
		}
		var width uint16
		if err := binary.Read(r, binary.BigEndian, &width); err != nil {
			return nil, shortRead("field width", err)
		}
		h.columns = append(h.columns, schema.Column{Name: decodeText(name), Width: int(width)})
		stored += int64(2 + len(name) + 2)
	}

	if h.dataOffset < stored {
		return nil, corrupt("data offset %d overlaps the %d byte header", h.dataOffset, stored)
	}
	return h, nil
}

func shortRead(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return corrupt("premature end of file in %s", what)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

func encodeHeader(columns []schema.Column) ([]byte, error) {
	if len(columns) > math.MaxUint16 {
		return nil, fmt.Errorf("too many fields: %d", len(columns))
	}

	names := make([][]byte, len(columns))
	size := int64(4 + 4 + 2)
	for i, c := range columns {
		name, err := encodeText(c.Name)
		if err != nil {
			return nil, err
		}
		if len(name) > math.MaxUint16 {
			return nil, fmt.Errorf("field name %q too long", c.Name)
		}
		if c.Width <= 0 || c.Width > math.MaxUint16 {
			return nil, fmt.Errorf("field %q has invalid width %d", c.Name, c.Width)
		}
		names[i] = name
		size += int64(2 + len(name) + 2)
	}
	if size > math.MaxUint32 {
		return nil, fmt.Errorf("header too large: %d bytes", size)
	}

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, MagicCookie)
	buf = binary.BigEndian.AppendUint32(buf, uint32(size))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(columns)))
	for i, c := range columns {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(names[i])))
		buf = append(buf, names[i]...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(c.Width))
	}
	return buf, nil
}

// recordWidth is the size of one slot including the status flag.
func recordWidth(s *schema.Schema) int64 {
	return int64(statusWidth + s.DataWidth())
}

func encodeText(s string) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %q as latin-1: %w", s, err)
	}
	return out, nil
}

func decodeText(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// unreachable: every byte is an ISO 8859-1 code point
		return string(b)
	}
	return string(out)
}

// encodeField writes text into dst, NUL padding to len(dst). Text longer
// than dst is truncated when truncate is set and rejected otherwise.
func encodeField(dst []byte, text string, truncate bool) error {
	raw, err := encodeText(text)
	if err != nil {
		return err
	}
	if len(raw) > len(dst) && !truncate {
		return fmt.Errorf("%w: %q is wider than %d bytes", schema.ErrInvalidValue, text, len(dst))
	}
	n := copy(dst, raw)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// decodeField strips the right padding of a stored field.
func decodeField(src []byte) string {
	end := len(src)
	for end > 0 && (src[end-1] == 0 || src[end-1] == ' ') {
		end--
	}
	return decodeText(src[:end])
}

// encodeRecord serializes r into one slot.
func encodeRecord(s *schema.Schema, r *record.Record) ([]byte, error) {
	if err := r.Conforms(s); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidValue, err)
	}

	buf := make([]byte, recordWidth(s))
	status := ValidFlag
	if r.Deleted() {
		status = DeletedFlag
	}
	binary.BigEndian.PutUint16(buf, status)

	pos := statusWidth
	for i := 0; i < s.NumFields(); i++ {
		width := s.Field(i).MaxLength
		text, err := s.Parser(i).Format(r.Field(i))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", s.Field(i).Name, err)
		}
		if err := encodeField(buf[pos:pos+width], text, s.TypeAt(i) == schema.TypeString); err != nil {
			return nil, fmt.Errorf("field %q: %w", s.Field(i).Name, err)
		}
		pos += width
	}
	return buf, nil
}

// decodeRecord parses one slot. Fields of deleted records that do not parse
// are replaced with the type's zero value, since a deleted slot may hold
// whatever an earlier writer left behind.
func decodeRecord(s *schema.Schema, number int, stamp serial.Number, buf []byte) (*record.Record, error) {
	if int64(len(buf)) != recordWidth(s) {
		return nil, corrupt("record %d is %d bytes, want %d", number, len(buf), recordWidth(s))
	}

	var deleted bool
	switch flag := binary.BigEndian.Uint16(buf); flag {
	case ValidFlag:
	case DeletedFlag:
		deleted = true
	default:
		return nil, corrupt("record %d has bad status flag 0x%04x", number, flag)
	}

	values := make([]schema.Value, s.NumFields())
	pos := statusWidth
	for i := range values {
		width := s.Field(i).MaxLength
		text := decodeField(buf[pos : pos+width])
		pos += width

		v, err := s.Parser(i).Parse(text)
		if err != nil {
			if !deleted {
				return nil, corrupt("record %d field %q: %v", number, s.Field(i).Name, err)
			}
			v = s.Parser(i).Zero()
		}
		values[i] = v
	}

	return record.New(number, stamp, deleted, values), nil
}
