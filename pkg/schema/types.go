package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FieldType identifies how a field's text is interpreted.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeBoolean
	TypeCurrency
	TypeDate
)

var typeNames = map[FieldType]string{
	TypeString:   "string",
	TypeInteger:  "integer",
	TypeBoolean:  "boolean",
	TypeCurrency: "currency",
	TypeDate:     "date",
}

// String returns the configuration name of the type.
func (t FieldType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType converts a configuration name ("string", "integer", ...)
// into a FieldType. The empty string maps to TypeString.
func ParseFieldType(name string) (FieldType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return TypeString, nil
	}
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var (
	// ErrUnknownType is returned for a type name with no parser.
	ErrUnknownType = errors.New("unknown field type")
	// ErrInvalidValue is returned when text cannot be parsed as, or a value
	// cannot be formatted as, the field's type.
	ErrInvalidValue = errors.New("invalid field value")
)

// Value is a typed field value. A nil Value stands for "no value supplied",
// which update operations read as "keep the existing value".
type Value interface {
	Type() FieldType
}

// Text is a TypeString value.
type Text string

// Integer is a TypeInteger value.
type Integer int64

// Boolean is a TypeBoolean value.
type Boolean bool

// Currency is a TypeCurrency value in hundredths of the currency unit.
type Currency int64

// Date is a TypeDate value.
type Date time.Time

func (Text) Type() FieldType     { return TypeString }
func (Integer) Type() FieldType  { return TypeInteger }
func (Boolean) Type() FieldType  { return TypeBoolean }
func (Currency) Type() FieldType { return TypeCurrency }
func (Date) Type() FieldType     { return TypeDate }
