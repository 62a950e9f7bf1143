// Package ratelimit implements per key token bucket rate limiting for HTTP
// handlers.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // requests left in the bucket
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // 0 if allowed
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	rate   rate.Limit
	burst  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing requests per window per key, with
// burst capacity.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		rate:    rate.Limit(float64(requests) / window.Seconds()),
		burst:   burst,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) Result {
	now := l.now()
	l.mu.Lock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := b.limiter.ReserveN(now, 1)
	allowed := res.OK() && res.DelayFrom(now) == 0
	if !allowed && res.OK() {
		res.CancelAt(now)
	}

	tokens := b.limiter.TokensAt(now)
	r := Result{
		Allowed:   allowed,
		Limit:     int(float64(l.rate) * l.window.Seconds()),
		Remaining: max(int(tokens), 0),
		ResetAt:   now.Add(time.Duration((float64(l.burst) - tokens) / float64(l.rate) * float64(time.Second))),
	}
	if !allowed {
		r.RetryAfter = max(time.Duration(float64(time.Second)/float64(l.rate)), time.Second)
	}
	return r
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets idle for 10 minutes that have refilled.
func (l *Limiter) cleanup() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > 10*time.Minute && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
