package cascade

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Bucket is a token bucket. Take reserves tokens and reports how long the caller has to wait
// for the reservation to be covered.
type Bucket struct {
	mu    sync.Mutex
	clock Clock

	capacity     int64
	fillInterval time.Duration
	fillQuantum  int64
	tokens       int64
	latestTime   time.Time
}

// NewBucket returns a full bucket gaining fillQuantum tokens every fillInterval.
func NewBucket(clock Clock, capacity int64, fillInterval time.Duration, fillQuantum int64) (*Bucket, error) {
	if capacity < 1 || fillInterval <= 0 || fillQuantum < 1 {
		return nil, errInvalidRateLimit
	}
	if clock == nil {
		clock = realClock{}
	}

	return &Bucket{
		clock:        clock,
		capacity:     capacity,
		fillInterval: fillInterval,
		fillQuantum:  fillQuantum,
		tokens:       capacity,
		latestTime:   clock.Now(),
	}, nil
}

func (b *Bucket) Take(count int64) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.refill(now)

	b.tokens -= count
	if b.tokens >= 0 {
		return true, 0
	}

	intervals := (-b.tokens + b.fillQuantum - 1) / b.fillQuantum
	wait := time.Duration(intervals)*b.fillInterval - now.Sub(b.latestTime)
	if wait <= 0 {
		wait = b.fillInterval
	}

	return false, wait
}

func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.latestTime)
	intervals := int64(elapsed / b.fillInterval)
	if intervals <= 0 {
		return
	}

	b.latestTime = b.latestTime.Add(time.Duration(intervals) * b.fillInterval)
	b.tokens += intervals * b.fillQuantum
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// Wait takes one token and blocks until it is covered or ctx is done.
func (b *Bucket) Wait(ctx context.Context) error {
	ok, wait := b.Take(1)
	if ok {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clock.After(wait):
		return nil
	}
}
