package timer

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, opts...)
	s := NewScheduler(opts...)
	t.Cleanup(s.Close)
	return s
}

func TestOneShotFiresOnce(t *testing.T) {
	s := newTestScheduler(t)

	var n atomic.Int32
	h, err := s.OneShot("comp", 5*time.Millisecond, func() { n.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), h.Period())
	assert.Equal(t, "comp", h.Owner())

	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
	assert.False(t, h.Active())
	assert.Equal(t, 0, s.Pending("comp"))
}

func TestOneShotWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	s := newTestScheduler(t, WithClock(mock))

	var n atomic.Int32
	_, err := s.OneShot("comp", 10*time.Second, func() { n.Add(1) })
	require.NoError(t, err)

	mock.Add(5 * time.Second)
	assert.Equal(t, int32(0), n.Load())
	assert.Equal(t, 1, s.Pending("comp"))

	mock.Add(5 * time.Second)
	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return s.Pending("comp") == 0 }, time.Second, time.Millisecond)
}

func TestPeriodicNoOverlap(t *testing.T) {
	s := newTestScheduler(t)

	const period = 10 * time.Millisecond
	var (
		mu      sync.Mutex
		running int
		maxRun  int
		starts  []time.Time
		ends    []time.Time
	)

	h, err := s.Periodic("slow", period, func() {
		mu.Lock()
		running++
		if running > maxRun {
			maxRun = running
		}
		starts = append(starts, time.Now())
		mu.Unlock()

		time.Sleep(3 * period)

		mu.Lock()
		running--
		ends = append(ends, time.Now())
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ends) >= 4
	}, 2*time.Second, time.Millisecond)

	s.Cancel(h)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRun)
	for i := 1; i < len(starts) && i < len(ends); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(ends[i-1]), period, "tick %d started before previous return + period", i)
	}
}

func TestPeriodicKeepsFiring(t *testing.T) {
	s := newTestScheduler(t)

	var n atomic.Int32
	h, err := s.Periodic("comp", 2*time.Millisecond, func() { n.Add(1) })
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return n.Load() >= 5 }, time.Second, time.Millisecond)
	assert.True(t, h.Active())
	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel())
}

func TestCancelPreventsFiring(t *testing.T) {
	s := newTestScheduler(t)

	var n atomic.Int32
	h, err := s.OneShot("comp", 20*time.Millisecond, func() { n.Add(1) })
	require.NoError(t, err)

	assert.True(t, s.Cancel(h))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())
	assert.False(t, h.Active())
}

func TestCancelFromOwnCallback(t *testing.T) {
	s := newTestScheduler(t)

	var n atomic.Int32
	var h *Handle
	var mu sync.Mutex
	mu.Lock()
	h, err := s.Periodic("comp", 2*time.Millisecond, func() {
		mu.Lock()
		defer mu.Unlock()
		if n.Add(1) == 3 {
			h.Cancel()
		}
	})
	mu.Unlock()
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return !h.Active() }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), n.Load())
}

func TestCancelOwner(t *testing.T) {
	s := newTestScheduler(t)

	var fired atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := s.OneShot("a", 30*time.Millisecond, func() { fired.Add(1) })
		require.NoError(t, err)
	}
	_, err := s.Periodic("a", 30*time.Millisecond, func() { fired.Add(1) })
	require.NoError(t, err)
	_, err = s.OneShot("b", time.Hour, func() {})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Pending("a"))
	assert.Equal(t, 4, s.CancelOwner("a"))
	assert.Equal(t, 0, s.Pending("a"))
	assert.Equal(t, 1, s.Pending("b"))
	assert.Equal(t, 1, s.Len())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestInvalidDuration(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.OneShot("c", 0, func() {})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = s.Periodic("c", -time.Second, func() {})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = s.OneShot("c", time.Second, nil)
	assert.Error(t, err)
}

func TestPanicInCallbackIsRecovered(t *testing.T) {
	s := newTestScheduler(t)

	var n atomic.Int32
	_, err := s.Periodic("comp", 2*time.Millisecond, func() {
		n.Add(1)
		panic("boom")
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestCloseWaitsForRunningCallback(t *testing.T) {
	s := NewScheduler(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	started := make(chan struct{})
	var done atomic.Bool
	_, err := s.OneShot("comp", time.Millisecond, func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		done.Store(true)
	})
	require.NoError(t, err)

	<-started
	s.Close()
	assert.True(t, done.Load())

	_, err = s.OneShot("comp", time.Millisecond, func() {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, s.Len())
}
