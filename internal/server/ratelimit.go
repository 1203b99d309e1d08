package server

import (
	"net/http"
	"sync"
	"time"

	"shapeup/internal/api"
	"shapeup/internal/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per caller key.
type RateLimiter struct {
	callers map[string]*caller
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	ttl     time.Duration
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		callers: make(map[string]*caller),
		rate:    rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
	}
}

// Sweep drops callers idle for longer than the ttl.
func (rl *RateLimiter) Sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.callers {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.callers, key)
		}
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.callers[key]
	if !ok {
		v = &caller{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.callers[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.callers)
}

// RateLimitMiddleware limits per member when the caller is authenticated and per IP otherwise.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(rps, burst, 3*time.Minute)
	var sweepMu sync.Mutex
	lastSweep := time.Now()

	return func(c *gin.Context) {
		now := time.Now()
		sweepMu.Lock()
		if now.Sub(lastSweep) > time.Minute {
			lastSweep = now
			sweepMu.Unlock()
			limiter.Sweep(now)
		} else {
			sweepMu.Unlock()
		}

		key := "ip:" + c.ClientIP()
		if memberID, ok := auth.GetMemberID(c); ok {
			key = "member:" + memberID
		}

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
