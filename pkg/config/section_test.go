package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionDefaults(t *testing.T) {
	s := NewSection(nil)

	v, err := s.String("missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	n, err := s.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	b, err := s.Bool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)

	l, err := s.Strings("missing", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, l)

	d, err := s.Millis("missing", 250*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	assert.False(t, s.Has("missing"))
	assert.Empty(t, s.Keys())
}

func TestSectionErrors(t *testing.T) {
	s := NewSection(map[string]any{
		"name":    "x",
		"count":   "many",
		"list":    []any{"a", 2},
		"port":    70000,
		"zero":    0,
		"nested":  map[string]any{"flag": "maybe"},
		"frac":    1.5,
		"complex": map[string]any{},
	})

	_, err := s.RequireString("absent")
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "settings.absent")

	_, err = s.Int("count", 0)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.Int("frac", 0)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.Strings("list", nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.Port("port", 1)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.Millis("zero", time.Second)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.PositiveInt("zero", 1)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.Bool("nested.flag", false)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.String("complex", "")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSectionSub(t *testing.T) {
	s := NewSection(map[string]any{
		"server": map[string]any{
			"tcp": map[string]any{"port": 3100},
		},
	})

	tcp := s.Sub("server.tcp")
	port, err := tcp.Port("port", 3000)
	require.NoError(t, err)
	assert.Equal(t, 3100, port)
	assert.Equal(t, "settings.server.tcp", tcp.Path())

	empty := s.Sub("nothing")
	assert.False(t, empty.Has("port"))
}

func TestSectionLiteralKeyWins(t *testing.T) {
	s := NewSection(map[string]any{
		"a.b": "literal",
		"a":   map[string]any{"b": "nested"},
	})
	v, err := s.String("a.b", "")
	require.NoError(t, err)
	assert.Equal(t, "literal", v)
}

func TestSectionListenPort(t *testing.T) {
	s := NewSection(map[string]any{"zero": 0, "high": 70000, "neg": -1})

	port, err := s.ListenPort("zero", 3000)
	require.NoError(t, err)
	assert.Equal(t, 0, port)

	port, err = s.ListenPort("absent", 3000)
	require.NoError(t, err)
	assert.Equal(t, 3000, port)

	_, err = s.ListenPort("high", 0)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = s.ListenPort("neg", 0)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = s.Port("zero", 1)
	assert.ErrorIs(t, err, ErrConfig)
}
