package cascade

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

type randomWrapper interface {
	Int63n(n int64) int64
}

type defaultRandom struct{}

func (r *defaultRandom) Int63n(n int64) int64 {
	return rand.Int63n(n)
}

type backoff interface {
	Reset()
	Next() time.Duration
	GetMaxAttempt() uint8
	GetCurrentAttempt() uint8
}

type ExponentialBackoff struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	multiplier float64
	attempt    uint8
	maxAttempt uint8

	random  randomWrapper
	backoff jitterBackoff
}

var (
	DefaultMinDelay   = 100 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second
	DefaultMultiplier = 2.0
	DefaultMaxAttempt = uint8(3)
	DefaultRandom     = &defaultRandom{}
)

type ExponentialBackoffOptionFunc func(eb *ExponentialBackoff) error

func NewExponentialBackoff(optFns ...ExponentialBackoffOptionFunc) (*ExponentialBackoff, error) {
	eb := &ExponentialBackoff{
		minDelay:   DefaultMinDelay,
		maxDelay:   DefaultMaxDelay,
		multiplier: DefaultMultiplier,
		maxAttempt: DefaultMaxAttempt,
		random:     DefaultRandom,
	}

	for _, optFn := range optFns {
		if err := optFn(eb); err != nil {
			return nil, err
		}
	}

	eb.backoff = fullJitterBuilder(eb.minDelay, eb.maxDelay, eb.multiplier, eb.random)
	eb.Reset()

	return eb, nil
}

func WithMinDelay(d time.Duration) ExponentialBackoffOptionFunc {
	return func(eb *ExponentialBackoff) error {
		if d <= 0 {
			return errInvalidTimeout
		}
		eb.minDelay = d
		return nil
	}
}

func WithMaxDelay(d time.Duration) ExponentialBackoffOptionFunc {
	return func(eb *ExponentialBackoff) error {
		if d <= 0 {
			return errInvalidTimeout
		}
		eb.maxDelay = d
		return nil
	}
}

func WithMultiplier(m float64) ExponentialBackoffOptionFunc {
	return func(eb *ExponentialBackoff) error {
		eb.multiplier = m
		return nil
	}
}

func withRandomImp(r randomWrapper) ExponentialBackoffOptionFunc {
	return func(eb *ExponentialBackoff) error {
		eb.random = r
		return nil
	}
}

// WithMaxAttempt sets how many times an operation runs before Retry gives up.
func WithMaxAttempt(a uint8) ExponentialBackoffOptionFunc {
	return func(eb *ExponentialBackoff) error {
		eb.maxAttempt = a
		return nil
	}
}

func (eb *ExponentialBackoff) Reset() {
	eb.attempt = 0
}

func (eb *ExponentialBackoff) Next() time.Duration {
	eb.attempt++
	return eb.backoff(eb.attempt)
}

func (eb *ExponentialBackoff) GetMaxAttempt() uint8 {
	return eb.maxAttempt
}

func (eb *ExponentialBackoff) GetCurrentAttempt() uint8 {
	return eb.attempt
}

type jitterBackoff func(attempt uint8) time.Duration

func fullJitterBuilder(minDelay time.Duration, capacity time.Duration, multiplier float64, random randomWrapper) jitterBackoff {
	return func(attempt uint8) time.Duration {
		cap := float64(capacity)
		att := float64(attempt)
		base := float64(minDelay)

		temp := math.Min(cap, base*math.Pow(att, multiplier))
		diff := int64(temp) - int64(base)
		if diff <= 0 {
			diff = 1
		}
		sleep := random.Int63n(diff) + int64(base)

		return time.Duration(sleep)
	}
}

type retryableFunc func() error

// permanentError stops Retry right away.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs op until it succeeds, returns a Permanent error, the backoff runs out of
// attempts or ctx is done. The last error of op is returned.
func Retry(ctx context.Context, op retryableFunc, eb backoff) error {
	maxAttempts := eb.GetMaxAttempt()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr := op()
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		delay := eb.Next()
		if eb.GetCurrentAttempt() >= maxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
