package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(threshold, time.Minute, WithClock(clock.Now)), clock
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)

	b.RecordFailure("mirror")
	b.RecordFailure("mirror")
	assert.True(t, b.Allow("mirror"), "should still allow before threshold")

	b.RecordFailure("mirror")
	assert.False(t, b.Allow("mirror"))
	assert.Equal(t, StateOpen, b.State("mirror"))
	assert.Equal(t, []string{"mirror"}, b.Open())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(2)

	b.RecordFailure("mirror")
	b.RecordFailure("mirror")
	require.False(t, b.Allow("mirror"))

	clock.Advance(time.Minute)

	assert.True(t, b.Allow("mirror"), "one probe allowed after cool-down")
	assert.Equal(t, StateHalfOpen, b.State("mirror"))
	assert.False(t, b.Allow("mirror"), "second request rejected while probing")

	b.RecordSuccess("mirror")
	assert.Equal(t, StateClosed, b.State("mirror"))
	assert.True(t, b.Allow("mirror"))
	assert.Empty(t, b.Open())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(1)

	b.RecordFailure("mirror")
	clock.Advance(time.Minute)
	require.True(t, b.Allow("mirror"))

	b.RecordFailure("mirror")
	assert.Equal(t, StateOpen, b.State("mirror"))
	assert.False(t, b.Allow("mirror"))
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2)

	b.RecordFailure("mirror")
	b.RecordSuccess("mirror")
	b.RecordFailure("mirror")
	assert.Equal(t, StateClosed, b.State("mirror"))
}

func TestBreaker_IndependentKeys(t *testing.T) {
	b, _ := newTestBreaker(1)

	b.RecordFailure("mirror")
	assert.False(t, b.Allow("mirror"))
	assert.True(t, b.Allow("postgres"))
	assert.Equal(t, StateClosed, b.State("unknown"))
}

func TestBreaker_Execute(t *testing.T) {
	b, _ := newTestBreaker(2)
	errNotFound := errors.New("not found")
	errDown := errors.New("down")
	ignore := func(err error) bool { return errors.Is(err, errNotFound) }

	for i := 0; i < 5; i++ {
		err := b.Execute("mirror", func() error { return errNotFound }, ignore)
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, StateClosed, b.State("mirror"), "ignored errors never trip")

	_ = b.Execute("mirror", func() error { return errDown }, ignore)
	_ = b.Execute("mirror", func() error { return errDown }, ignore)

	called := false
	err := b.Execute("mirror", func() error { called = true; return nil }, ignore)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_TransitionCallbackAndMetric(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	b := New(1, time.Minute, WithOnTransition(func(key string, from, to State) {
		mu.Lock()
		calls = append(calls, key+":"+from.String()+"->"+to.String())
		mu.Unlock()
	}))

	b.RecordFailure("metric-test")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "metric-test:closed->open", calls[0])

	m := &dto.Metric{}
	require.NoError(t, stateTransitions.WithLabelValues("metric-test", "closed", "open").Write(m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
