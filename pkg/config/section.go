package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Section is a tree of settings addressed by dotted keys.
type Section struct {
	path   string
	values map[string]any
}

// NewSection wraps values. Nested maps become sub-sections.
func NewSection(values map[string]any) Section {
	return Section{values: values}
}

// UnmarshalYAML decodes a mapping node into the section.
func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return err
	}
	s.values = m
	return nil
}

// Path returns the location of the section used in error messages.
func (s Section) Path() string {
	if s.path == "" {
		return "settings"
	}
	return s.path
}

// Keys returns the top-level keys, sorted.
func (s Section) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key resolves to a value.
func (s Section) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// lookup resolves key as a literal first, then by walking nested maps,
// trying every split of the dotted path.
func (s Section) lookup(key string) (any, bool) {
	return lookupIn(s.values, key)
}

func lookupIn(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	for i := len(key) - 1; i > 0; i-- {
		if key[i] != '.' {
			continue
		}
		child, ok := m[key[:i]]
		if !ok {
			continue
		}
		sub, ok := asMap(child)
		if !ok {
			continue
		}
		if v, ok := lookupIn(sub, key[i+1:]); ok {
			return v, true
		}
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Section:
		return m.values, true
	default:
		return nil, false
	}
}

func (s Section) errorf(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s.%s: %s", ErrConfig, s.Path(), key, fmt.Sprintf(format, args...))
}

// Sub returns the section under key. A missing key yields an empty section.
func (s Section) Sub(key string) Section {
	sub := Section{path: s.Path() + "." + key}
	if v, ok := s.lookup(key); ok {
		if m, ok := asMap(v); ok {
			sub.values = m
		}
	}
	return sub
}

// String returns the value of key, or def when absent. Scalars of other
// types are formatted.
func (s Section) String(key, def string) (string, error) {
	v, ok := s.lookup(key)
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(t), nil
	default:
		return "", s.errorf(key, "expected a string, got %T", v)
	}
}

// RequireString returns the value of key and fails when it is absent or
// empty.
func (s Section) RequireString(key string) (string, error) {
	v, err := s.String(key, "")
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", s.errorf(key, "required")
	}
	return v, nil
}

// Int returns the value of key, or def when absent.
func (s Section) Int(key string, def int) (int, error) {
	v, ok := s.lookup(key)
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t != float64(int(t)) {
			return 0, s.errorf(key, "expected an integer, got %v", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, s.errorf(key, "expected an integer, got %q", t)
		}
		return n, nil
	default:
		return 0, s.errorf(key, "expected an integer, got %T", v)
	}
}

// PositiveInt is Int that rejects values below one.
func (s Section) PositiveInt(key string, def int) (int, error) {
	n, err := s.Int(key, def)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, s.errorf(key, "must be positive, got %d", n)
	}
	return n, nil
}

// Port returns a TCP or UDP port number.
func (s Section) Port(key string, def int) (int, error) {
	n, err := s.Int(key, def)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 65535 {
		return 0, s.errorf(key, "port must be between 1 and 65535, got %d", n)
	}
	return n, nil
}

// ListenPort is Port that also accepts zero, which lets the system pick a
// free port when binding.
func (s Section) ListenPort(key string, def int) (int, error) {
	n, err := s.Int(key, def)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 65535 {
		return 0, s.errorf(key, "port must be between 0 and 65535, got %d", n)
	}
	return n, nil
}

// Bool returns the value of key, or def when absent.
func (s Section) Bool(key string, def bool) (bool, error) {
	v, ok := s.lookup(key)
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, s.errorf(key, "expected a boolean, got %q", t)
		}
		return b, nil
	default:
		return false, s.errorf(key, "expected a boolean, got %T", v)
	}
}

// Strings returns a list value. A single string is a one-element list.
func (s Section) Strings(key string, def []string) ([]string, error) {
	v, ok := s.lookup(key)
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, e := range t {
			str, ok := e.(string)
			if !ok {
				return nil, s.errorf(key, "element %d: expected a string, got %T", i, e)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, s.errorf(key, "expected a list of strings, got %T", v)
	}
}

// Millis reads a positive integer number of milliseconds.
func (s Section) Millis(key string, def time.Duration) (time.Duration, error) {
	n, err := s.Int(key, int(def/time.Millisecond))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, s.errorf(key, "must be a positive number of milliseconds, got %d", n)
	}
	return time.Duration(n) * time.Millisecond, nil
}
