package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parser converts between a field's text form and its typed Value. The text
// form is what is stored on disk and what clients exchange.
type Parser interface {
	Type() FieldType
	Parse(text string) (Value, error)
	Format(v Value) (string, error)
	// Zero is the value used when a new record omits the field.
	Zero() Value
}

// Formats holds the textual conventions used by the parsers.
type Formats struct {
	DateLayout     string
	CurrencySymbol string
}

// DefaultFormats returns the formats used when none are configured.
func DefaultFormats() Formats {
	return Formats{
		DateLayout:     "2006/01/02",
		CurrencySymbol: "$",
	}
}

// Parser returns the parser for t using these formats.
func (f Formats) Parser(t FieldType) (Parser, error) {
	switch t {
	case TypeString:
		return textParser{}, nil
	case TypeInteger:
		return integerParser{}, nil
	case TypeBoolean:
		return booleanParser{}, nil
	case TypeCurrency:
		return currencyParser{symbol: f.CurrencySymbol}, nil
	case TypeDate:
		layout := f.DateLayout
		if layout == "" {
			layout = DefaultFormats().DateLayout
		}
		return dateParser{layout: layout}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
}

func invalid(t FieldType, text string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid %s: %v", ErrInvalidValue, text, t, err)
	}
	return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidValue, text, t)
}

func mismatch(want FieldType, v Value) error {
	if v == nil {
		return fmt.Errorf("%w: nil value for %s field", ErrInvalidValue, want)
	}
	return fmt.Errorf("%w: %s value for %s field", ErrInvalidValue, v.Type(), want)
}

type textParser struct{}

func (textParser) Type() FieldType { return TypeString }
func (textParser) Zero() Value     { return Text("") }

func (textParser) Parse(text string) (Value, error) {
	return Text(text), nil
}

func (textParser) Format(v Value) (string, error) {
	t, ok := v.(Text)
	if !ok {
		return "", mismatch(TypeString, v)
	}
	return string(t), nil
}

type integerParser struct{}

func (integerParser) Type() FieldType { return TypeInteger }
func (integerParser) Zero() Value     { return Integer(0) }

func (integerParser) Parse(text string) (Value, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, invalid(TypeInteger, text, err)
	}
	return Integer(n), nil
}

func (integerParser) Format(v Value) (string, error) {
	n, ok := v.(Integer)
	if !ok {
		return "", mismatch(TypeInteger, v)
	}
	return strconv.FormatInt(int64(n), 10), nil
}

type booleanParser struct{}

func (booleanParser) Type() FieldType { return TypeBoolean }
func (booleanParser) Zero() Value     { return Boolean(false) }

func (booleanParser) Parse(text string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes", "true", "1":
		return Boolean(true), nil
	case "n", "no", "false", "0", "":
		return Boolean(false), nil
	default:
		return nil, invalid(TypeBoolean, text, nil)
	}
}

func (booleanParser) Format(v Value) (string, error) {
	b, ok := v.(Boolean)
	if !ok {
		return "", mismatch(TypeBoolean, v)
	}
	if b {
		return "Y", nil
	}
	return "N", nil
}

// currencyParser reads "$150", "$150.5" and "$150.50"; the symbol is optional
// on input and always written on output.
type currencyParser struct {
	symbol string
}

func (currencyParser) Type() FieldType { return TypeCurrency }
func (currencyParser) Zero() Value     { return Currency(0) }

func (p currencyParser) Parse(text string) (Value, error) {
	s := strings.TrimSpace(text)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	if p.symbol != "" {
		s = strings.TrimSpace(strings.TrimPrefix(s, p.symbol))
	}
	if !negative && strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return nil, invalid(TypeCurrency, text, nil)
	}
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) {
		return nil, invalid(TypeCurrency, text, nil)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return nil, invalid(TypeCurrency, text, err)
	}
	if units > (math.MaxInt64-99)/100 {
		return nil, invalid(TypeCurrency, text, nil)
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 || !allDigits(frac) {
			return nil, invalid(TypeCurrency, text, nil)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ = strconv.ParseInt(frac, 10, 64)
	}

	total := units*100 + cents
	if negative {
		total = -total
	}
	return Currency(total), nil
}

func (p currencyParser) Format(v Value) (string, error) {
	c, ok := v.(Currency)
	if !ok {
		return "", mismatch(TypeCurrency, v)
	}
	sign := ""
	n := int64(c)
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, p.symbol, n/100, n%100), nil
}

type dateParser struct {
	layout string
}

func (dateParser) Type() FieldType { return TypeDate }
func (dateParser) Zero() Value     { return Date(time.Time{}) }

func (p dateParser) Parse(text string) (Value, error) {
	t, err := time.Parse(p.layout, strings.TrimSpace(text))
	if err != nil {
		return nil, invalid(TypeDate, text, err)
	}
	return Date(t), nil
}

func (p dateParser) Format(v Value) (string, error) {
	d, ok := v.(Date)
	if !ok {
		return "", mismatch(TypeDate, v)
	}
	return time.Time(d).Format(p.layout), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
