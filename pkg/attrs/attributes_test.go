package attrs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesTypedAccess(t *testing.T) {
	a := New()
	a.SetInt("count", 7)
	a.SetString("data", "42")
	a.SetBool("ok", true)
	a.SetFloat("ratio", 0.5)

	n, err := a.Int("count")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	s, err := a.String("data")
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	b, err := a.Bool("ok")
	require.NoError(t, err)
	assert.True(t, b)

	f, err := a.Float("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	assert.Equal(t, 4, a.Len())
	assert.Equal(t, []string{"count", "data", "ok", "ratio"}, a.Keys())
}

func TestAttributesErrors(t *testing.T) {
	a := Of("count", 1)

	_, err := a.Int("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = a.String("count")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	var tm *TypeMismatchError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, "count", tm.Key)
	assert.Equal(t, KindString, tm.Want)
	assert.Equal(t, KindInt, tm.Got)
}

func TestAttributesTryGet(t *testing.T) {
	a := Of("id", "temp", "n", 3)

	v, ok := a.TryString("id")
	assert.True(t, ok)
	assert.Equal(t, "temp", v)

	_, ok = a.TryString("n")
	assert.False(t, ok)

	_, ok = a.TryInt("nope")
	assert.False(t, ok)
}

func TestAttributesOverwrite(t *testing.T) {
	a := New()
	a.SetInt("k", 1)
	a.SetString("k", "now a string")

	_, err := a.Int("k")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	s, err := a.String("k")
	require.NoError(t, err)
	assert.Equal(t, "now a string", s)
}

func TestAttributesZeroValueWritable(t *testing.T) {
	var a Attributes
	a.SetInt("x", 1)
	assert.True(t, a.Has("x"))
}

func TestAttributesFreezeAndClone(t *testing.T) {
	a := Of("x", 1)
	a.Freeze()
	assert.True(t, a.Frozen())

	assert.PanicsWithValue(t, ErrFrozen, func() { a.SetInt("y", 2) })

	c := a.Clone()
	assert.False(t, c.Frozen())
	c.SetInt("y", 2)
	assert.False(t, a.Has("y"))
}

func TestAttributesRange(t *testing.T) {
	a := Of("a", 1, "b", "two", "c", true)

	seen := map[string]any{}
	a.Range(func(k string, v Value) bool {
		seen[k] = v.Any()
		return true
	})
	assert.Equal(t, map[string]any{"a": int64(1), "b": "two", "c": true}, seen)
	assert.Equal(t, seen, a.Map())

	count := 0
	a.Range(func(string, Value) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestOfPanicsOnMalformedInput(t *testing.T) {
	assert.Panics(t, func() { Of("odd") })
	assert.Panics(t, func() { Of(1, 2) })
	assert.Panics(t, func() { Of("k", struct{}{}) })
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		in   any
		kind Kind
		str  string
	}{
		{int(5), KindInt, "5"},
		{uint32(9), KindInt, "9"},
		{"s", KindString, "s"},
		{false, KindBool, "false"},
		{float32(1.5), KindFloat, "1.5"},
		{Int(3), KindInt, "3"},
	}
	for _, tt := range tests {
		v, err := ValueOf(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.kind, v.Kind())
		assert.Equal(t, tt.str, v.String())
	}

	_, err := ValueOf([]byte("x"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestSummary(t *testing.T) {
	a := Of("b", 2, "a", "x")
	assert.Equal(t, "{a=x b=2}", a.Summary())
}
