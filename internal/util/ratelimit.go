package util

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter is a token bucket guarding one provider's call budget. Tokens
// refill continuously at perMinute/60 per second up to burst. A nil
// *RateLimiter never blocks.
type RateLimiter struct {
	name  string
	rate  float64 // tokens per second
	burst float64

	mu        sync.Mutex
	tokens    float64
	last      time.Time
	throttled int
}

// NewRateLimiter creates a limiter named after the provider it guards that
// allows perMinute calls per minute with up to burst calls back to back. It
// returns nil when perMinute is not positive.
func NewRateLimiter(name string, perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst = max(burst, 1)
	return &RateLimiter{
		name:   name,
		rate:   float64(perMinute) / 60.0,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	logged := false
	for {
		delay := rl.reserve()
		if delay <= 0 {
			return nil
		}
		if !logged {
			logged = true
			slog.Debug("rate limited", "provider", rl.name, "wait", delay.Round(time.Millisecond))
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve takes a token if one is available and otherwise returns how long
// until the next one accrues.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens = min(rl.burst, rl.tokens+now.Sub(rl.last).Seconds()*rl.rate)
	rl.last = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	rl.throttled++
	return time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
}

// Throttled is the number of times a caller had to wait for a token.
func (rl *RateLimiter) Throttled() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.throttled
}

// Name returns the provider name the limiter was created for.
func (rl *RateLimiter) Name() string {
	if rl == nil {
		return ""
	}
	return rl.name
}
