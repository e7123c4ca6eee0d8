package cascade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExponentialBackoff(t *testing.T) {
	t.Run("Successfully build with default value", func(t *testing.T) {
		eb, err := NewExponentialBackoff()
		require.NoError(t, err)

		assert.Equal(t, DefaultMinDelay, eb.minDelay, "minDelay should be equal to DefaultMinDelay")
		assert.Equal(t, DefaultMaxDelay, eb.maxDelay, "maxDelay should be equal to DefaultMaxDelay")
		assert.Equal(t, DefaultMultiplier, eb.multiplier, "multiplier should be equal to DefaultMultiplier")
		assert.Equal(t, uint8(0), eb.attempt, "attempt should be equal to 0")
		assert.Equal(t, DefaultMaxAttempt, eb.maxAttempt)
	})

	t.Run("Successfully build with valid options", func(t *testing.T) {
		eb, err := NewExponentialBackoff(
			WithMinDelay(10*time.Millisecond),
			WithMaxDelay(1*time.Second),
			WithMultiplier(3.0),
			WithMaxAttempt(5),
		)
		require.NoError(t, err)

		assert.Equal(t, 10*time.Millisecond, eb.minDelay)
		assert.Equal(t, 1*time.Second, eb.maxDelay)
		assert.Equal(t, 3.0, eb.multiplier)
		assert.Equal(t, uint8(5), eb.maxAttempt)
	})

	t.Run("Fails with non positive delay", func(t *testing.T) {
		_, err := NewExponentialBackoff(WithMinDelay(0))
		assert.ErrorIs(t, err, errInvalidTimeout)

		_, err = NewExponentialBackoff(WithMaxDelay(-time.Second))
		assert.ErrorIs(t, err, errInvalidTimeout)
	})
}

func TestExponentialBackoff(t *testing.T) {
	t.Run("Successfully reset", func(t *testing.T) {
		eb, _ := NewExponentialBackoff()

		eb.attempt = 10
		eb.Reset()

		assert.Equal(t, uint8(0), eb.GetCurrentAttempt(), "attempt should be equal to 0")
	})

	t.Run("First delay equals min delay", func(t *testing.T) {
		eb, _ := NewExponentialBackoff(withRandomImp(&MockRandom{}))

		delay := eb.Next()

		assert.Equal(t, DefaultMinDelay, delay)
		assert.Equal(t, uint8(1), eb.GetCurrentAttempt())
	})
}

type MockRandom struct {
	returnValues []int64
	callCount    int
}

func (m *MockRandom) Int63n(n int64) int64 {
	if m.callCount >= len(m.returnValues) {
		return 0
	}

	val := m.returnValues[m.callCount]
	m.callCount++
	return val % n
}

func TestFullJitterBuilder(t *testing.T) {
	minDelay := 1 * time.Second
	capacity := 10 * time.Second
	backoffFunc := fullJitterBuilder(minDelay, capacity, 2.0, &MockRandom{})

	testCases := []struct {
		attempt  uint8
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 1 * time.Second},
		{5, 1 * time.Second},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, backoffFunc(tc.attempt), "random 0 always gives the min delay")
	}

	t.Run("Never exceeds the cap", func(t *testing.T) {
		random := &MockRandom{returnValues: []int64{1<<62 - 1}}
		fn := fullJitterBuilder(minDelay, capacity, 2.0, random)

		assert.LessOrEqual(t, fn(10), capacity)
	})
}

type MockExponentialBackoff struct {
	Attempt    uint8
	MaxAttempt uint8
	Delay      time.Duration
}

func (m *MockExponentialBackoff) Reset() {
	m.Attempt = 0
}

func (m *MockExponentialBackoff) Next() time.Duration {
	m.Attempt++
	if m.Delay == 0 {
		return time.Millisecond
	}
	return m.Delay
}

func (m *MockExponentialBackoff) GetMaxAttempt() uint8 {
	return m.MaxAttempt
}

func (m *MockExponentialBackoff) GetCurrentAttempt() uint8 {
	return m.Attempt
}

func TestRetry(t *testing.T) {
	t.Run("Successfully run without retry", func(t *testing.T) {
		eb := &MockExponentialBackoff{MaxAttempt: 3}

		err := Retry(context.Background(), func() error { return nil }, eb)

		assert.NoError(t, err)
		assert.Equal(t, uint8(0), eb.GetCurrentAttempt())
	})

	t.Run("Successfully run after retries", func(t *testing.T) {
		failures := 2
		attempts := 0
		operation := func() error {
			attempts++
			if attempts <= failures {
				return assert.AnError
			}
			return nil
		}
		eb := &MockExponentialBackoff{MaxAttempt: 3}

		err := Retry(context.Background(), operation, eb)

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("Failure after all attempts", func(t *testing.T) {
		attempts := 0
		errFailed := errors.New("failed")
		eb := &MockExponentialBackoff{MaxAttempt: 3}

		err := Retry(context.Background(), func() error {
			attempts++
			return errFailed
		}, eb)

		assert.ErrorIs(t, err, errFailed)
		assert.Equal(t, 3, attempts, "operation should run max attempt times")
	})

	t.Run("Permanent error stops right away", func(t *testing.T) {
		attempts := 0
		eb := &MockExponentialBackoff{MaxAttempt: 3}

		err := Retry(context.Background(), func() error {
			attempts++
			return Permanent(assert.AnError)
		}, eb)

		assert.Equal(t, assert.AnError, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Failure with cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		eb := &MockExponentialBackoff{MaxAttempt: 3}

		err := Retry(ctx, func() error { return errors.New("won't execute") }, eb)

		assert.Equal(t, context.Canceled, err)
	})

	t.Run("Failure with cancelled context while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		eb := &MockExponentialBackoff{MaxAttempt: 3, Delay: time.Hour}

		err := Retry(ctx, func() error {
			cancel()
			return errors.New("failed")
		}, eb)

		assert.Equal(t, context.Canceled, err)
	})
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.ErrorIs(t, Permanent(assert.AnError), assert.AnError)
}
