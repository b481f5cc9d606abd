package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled per minute. HTTPTrainer waits on it
// before each dispatch so a burst of job creations does not flood the
// worker, and drains it when the worker answers 429.
type RateLimiter struct {
	mu sync.Mutex

	perMinute  int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time

	consumed int64
	waited   time.Duration
}

// RateLimiterStatus is the dispatch limiter as reported on /status.
type RateLimiterStatus struct {
	PerMinute     int   `json:"per_minute"`
	Available     int   `json:"available"`
	Dispatched    int64 `json:"dispatched"`
	TotalWaitedMS int64 `json:"total_waited_ms"`
}

// NewRateLimiter creates a full bucket of perMinute tokens.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		perMinute:  perMinute,
		tokens:     float64(perMinute),
		lastUpdate: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token if one is available.
func (r *RateLimiter) TryConsume() bool {
	return r.reserve() == 0
}

// reserve takes a token and returns 0, or returns how long until one
// refills.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		r.consumed++
		return 0
	}
	perSecond := float64(r.perMinute) / 60
	return time.Duration((1 - r.tokens) / perSecond * float64(time.Second))
}

// Drain empties the bucket.
func (r *RateLimiter) Drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	r.tokens = 0
}

// Status reports the bucket.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	return RateLimiterStatus{
		PerMinute:     r.perMinute,
		Available:     int(r.tokens),
		Dispatched:    r.consumed,
		TotalWaitedMS: r.waited.Milliseconds(),
	}
}

// refill credits tokens for the time since the last call. r.mu must be held.
func (r *RateLimiter) refill() {
	now := r.now()
	r.tokens += now.Sub(r.lastUpdate).Minutes() * float64(r.perMinute)
	r.lastUpdate = now
	if limit := float64(r.perMinute); r.tokens > limit {
		r.tokens = limit
	}
}
