package attrs

import (
	"fmt"
	"strconv"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind; it is never stored.
	KindInvalid Kind = iota
	// KindInt holds an int64.
	KindInt
	// KindString holds a string.
	KindString
	// KindBool holds a bool.
	KindBool
	// KindFloat holds a float64.
	KindFloat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	default:
		return "invalid"
	}
}

// Value is a tagged union of the supported payload kinds.
type Value struct {
	kind Kind
	i    int64
	s    string
	b    bool
	f    float64
}

// Int returns a Value holding v.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String returns a Value holding v.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool returns a Value holding v.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Float returns a Value holding v.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// ValueOf converts a Go value into a Value.
// Supported inputs are the signed and unsigned integer types, string, bool,
// float32, float64 and Value itself.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return Int(int64(x)), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrTypeMismatch, v)
	}
}

// Kind returns the kind of the held value.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Any returns the held value as int64, string, bool or float64.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindFloat:
		return v.f
	default:
		return nil
	}
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return "<invalid>"
	}
}
