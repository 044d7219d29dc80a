package middleware

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// RateLimiter is a fixed-window per-user limiter. The table is an LRU so
// memory stays bounded however many users write to the bot; evicted users
// simply start a fresh window.
type RateLimiter struct {
	users *lru.Cache
	mu    sync.Mutex
	now   func() time.Time

	maxRequests int
	window      time.Duration
}

type userLimit struct {
	requests  int
	resetTime time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration, maxUsers int) (*RateLimiter, error) {
	users, err := lru.New(maxUsers)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		users:       users,
		now:         time.Now,
		maxRequests: maxRequests,
		window:      window,
	}, nil
}

// WithClock replaces the time source
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// CheckUserLimit counts one request and reports whether it is allowed
func (rl *RateLimiter) CheckUserLimit(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	limit, ok := rl.lookup(userID)
	if !ok || !now.Before(limit.resetTime) {
		rl.users.Add(userID, &userLimit{requests: 1, resetTime: now.Add(rl.window)})
		return true
	}

	if limit.requests >= rl.maxRequests {
		return false
	}
	limit.requests++
	return true
}

// GetUserRemaining returns how many requests the user has left in the
// current window
func (rl *RateLimiter) GetUserRemaining(userID int64) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.lookup(userID)
	if !ok || !rl.now().Before(limit.resetTime) {
		return rl.maxRequests
	}
	if remaining := rl.maxRequests - limit.requests; remaining > 0 {
		return remaining
	}
	return 0
}

// RetryAfter is how long until the user's window resets
func (rl *RateLimiter) RetryAfter(userID int64) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.lookup(userID)
	if !ok {
		return 0
	}
	if d := limit.resetTime.Sub(rl.now()); d > 0 {
		return d
	}
	return 0
}

func (rl *RateLimiter) lookup(userID int64) (*userLimit, bool) {
	v, ok := rl.users.Get(userID)
	if !ok {
		return nil, false
	}
	return v.(*userLimit), true
}

// Tracked returns the number of users currently in the table
func (rl *RateLimiter) Tracked() int {
	return rl.users.Len()
}

// Reset clears all rate limits
func (rl *RateLimiter) Reset() {
	rl.users.Purge()
}
