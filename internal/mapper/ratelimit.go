package mapper

import "time"

// RateLimiter accepts at most one tick per interval.
type RateLimiter struct {
	interval time.Duration
	last     time.Time
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Allow reports whether a tick may run at now, recording it if so.
func (r *RateLimiter) Allow(now time.Time) bool {
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}

// Wait returns how long until the next tick would be accepted.
func (r *RateLimiter) Wait(now time.Time) time.Duration {
	if r.last.IsZero() {
		return 0
	}
	if d := r.interval - now.Sub(r.last); d > 0 {
		return d
	}
	return 0
}

func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}
