package attrs

import (
	"fmt"
	"maps"
	"slices"
)

// Attributes is an unordered mapping from string keys to typed values.
//
// The zero value is an empty, writable container. Attributes are not safe
// for concurrent writes; once frozen they are safe to share between readers.
type Attributes struct {
	m      map[string]Value
	frozen bool
}

// New returns an empty container.
func New() Attributes {
	return Attributes{m: make(map[string]Value)}
}

// Of builds attributes from alternating keys and values.
// It panics if a key is not a string, a value is unsupported, or the
// argument count is odd.
func Of(kv ...any) Attributes {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("attrs: Of called with %d arguments", len(kv)))
	}
	a := Attributes{m: make(map[string]Value, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("attrs: key at position %d is %T, not string", i, kv[i]))
		}
		v, err := ValueOf(kv[i+1])
		if err != nil {
			panic(err)
		}
		a.m[key] = v
	}
	return a
}

// Set stores v under key, replacing any previous value.
func (a *Attributes) Set(key string, v Value) {
	if a.frozen {
		panic(ErrFrozen)
	}
	if a.m == nil {
		a.m = make(map[string]Value)
	}
	a.m[key] = v
}

// SetInt stores an integer.
func (a *Attributes) SetInt(key string, v int64) { a.Set(key, Int(v)) }

// SetString stores a string.
func (a *Attributes) SetString(key, v string) { a.Set(key, String(v)) }

// SetBool stores a bool.
func (a *Attributes) SetBool(key string, v bool) { a.Set(key, Bool(v)) }

// SetFloat stores a float.
func (a *Attributes) SetFloat(key string, v float64) { a.Set(key, Float(v)) }

// Delete removes key.
func (a *Attributes) Delete(key string) {
	if a.frozen {
		panic(ErrFrozen)
	}
	delete(a.m, key)
}

// Get returns the raw value stored under key.
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a.m[key]
	return v, ok
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a.m[key]
	return ok
}

// Len returns the number of keys.
func (a Attributes) Len() int { return len(a.m) }

// Keys returns the keys in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a.m))
}

// Range calls fn for every pair until fn returns false. Order is unspecified.
func (a Attributes) Range(fn func(key string, v Value) bool) {
	for k, v := range a.m {
		if !fn(k, v) {
			return
		}
	}
}

// Clone returns a writable copy.
func (a Attributes) Clone() Attributes {
	m := make(map[string]Value, len(a.m))
	maps.Copy(m, a.m)
	return Attributes{m: m}
}

// Freeze makes the container read-only.
func (a *Attributes) Freeze() { a.frozen = true }

// Frozen reports whether the container is read-only.
func (a Attributes) Frozen() bool { return a.frozen }

// Map returns the content as plain Go values, for logging and capture.
func (a Attributes) Map() map[string]any {
	out := make(map[string]any, len(a.m))
	for k, v := range a.m {
		out[k] = v.Any()
	}
	return out
}

// Summary formats the attributes as sorted key=value pairs.
func (a Attributes) Summary() string {
	buf := make([]byte, 0, 16*len(a.m))
	buf = append(buf, '{')
	for i, k := range a.Keys() {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = fmt.Appendf(buf, "%s=%s", k, a.m[k].String())
	}
	return string(append(buf, '}'))
}

func (a Attributes) lookup(key string, want Kind) (Value, error) {
	v, ok := a.m[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if v.kind != want {
		return Value{}, &TypeMismatchError{Key: key, Want: want, Got: v.kind}
	}
	return v, nil
}

// Int returns the integer stored under key.
func (a Attributes) Int(key string) (int64, error) {
	v, err := a.lookup(key, KindInt)
	return v.i, err
}

// String returns the string stored under key.
func (a Attributes) String(key string) (string, error) {
	v, err := a.lookup(key, KindString)
	return v.s, err
}

// Bool returns the bool stored under key.
func (a Attributes) Bool(key string) (bool, error) {
	v, err := a.lookup(key, KindBool)
	return v.b, err
}

// Float returns the float stored under key.
func (a Attributes) Float(key string) (float64, error) {
	v, err := a.lookup(key, KindFloat)
	return v.f, err
}

// TryInt returns the integer stored under key, or false.
func (a Attributes) TryInt(key string) (int64, bool) {
	v, err := a.lookup(key, KindInt)
	return v.i, err == nil
}

// TryString returns the string stored under key, or false.
func (a Attributes) TryString(key string) (string, bool) {
	v, err := a.lookup(key, KindString)
	return v.s, err == nil
}

// TryBool returns the bool stored under key, or false.
func (a Attributes) TryBool(key string) (bool, bool) {
	v, err := a.lookup(key, KindBool)
	return v.b, err == nil
}

// TryFloat returns the float stored under key, or false.
func (a Attributes) TryFloat(key string) (float64, bool) {
	v, err := a.lookup(key, KindFloat)
	return v.f, err == nil
}
