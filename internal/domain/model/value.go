package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is a nullable scalar. The zero Value is null; context fields whose
// data is unavailable are null rather than zero.
type Value struct {
	kind Kind
	num  float64
	b    bool
	s    string
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int wraps an int as a number.
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// OptNumber returns Number(*p) or Null when p is nil.
func OptNumber(p *float64) Value {
	if p == nil {
		return Null()
	}
	return Number(*p)
}

// OptInt returns Int(*p) or Null when p is nil.
func OptInt(p *int) Value {
	if p == nil {
		return Null()
	}
	return Int(*p)
}

// OptBool returns Bool(*p) or Null when p is nil.
func OptBool(p *bool) Value {
	if p == nil {
		return Null()
	}
	return Bool(*p)
}

// OptString returns String(s) or Null when s is empty.
func OptString(s string) Value {
	if s == "" {
		return Null()
	}
	return String(s)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Num returns the number and whether v holds one.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool and whether v holds one.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Str returns the string and whether v holds one.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// AsNumber returns v as a number, parsing string operands. Bools and nulls fail.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal is strict: both kinds must match.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	default:
		return "null"
	}
}

// MarshalJSON encodes v as a JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, numbers, booleans and strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '{', '[':
		return fmt.Errorf("%w: value must be a scalar", ErrInvalidValue)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		*v = Number(f)
	}
	return nil
}
