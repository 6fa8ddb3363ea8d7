package pricing

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal quantity used for prices, usage values and
// costs. It serialises as a bare JSON number.
type Amount struct {
	d decimal.Decimal
}

// AmountFromInt returns the amount n.
func AmountFromInt(n int64) Amount { return Amount{d: decimal.NewFromInt(n)} }

// ParseAmount parses a decimal string such as "0.0104000000".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d: d}, nil
}

// MustAmount parses s and panics on malformed input. Intended for constants and tests.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

// Mul returns a × b.
func (a Amount) Mul(b Amount) Amount { return Amount{d: a.d.Mul(b.d)} }

// IsZero reports whether a equals zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsNegative reports whether a is below zero.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// Equal compares numeric values, ignoring trailing zeros.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// Float64 returns the nearest float64.
func (a Amount) Float64() float64 { return a.d.InexactFloat64() }

// String renders the amount without exponent or trailing zeros.
func (a Amount) String() string { return a.d.String() }

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings. Anything else
// is reported as a *json.UnmarshalTypeError so callers treat it like any
// other mistyped field.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := a.d.UnmarshalJSON(data); err != nil {
		return &json.UnmarshalTypeError{Value: jsonKind(data), Type: reflect.TypeOf(Amount{})}
	}
	return nil
}

func jsonKind(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "value"
	}
	switch data[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "number"
	}
}
