package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Idle buckets are dropped after
// idleTTL so the map does not grow with every client ever seen.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*visitor
	capacity int
	refill   rate.Limit
	idleTTL  time.Duration
	now      func() time.Time
}

// New creates a limiter allowing bursts of capacity requests, refilled at
// refillPerSec tokens per second.
func New(capacity int, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		m:        make(map[string]*visitor),
		capacity: capacity,
		refill:   rate.Limit(refillPerSec),
		idleTTL:  30 * time.Minute,
		now:      time.Now,
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.m[key]
	if !ok {
		if len(l.m) > 1024 {
			l.sweepLocked(now)
		}
		v = &visitor{lim: rate.NewLimiter(l.refill, l.capacity)}
		l.m[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, v := range l.m {
		if now.Sub(v.seen) > l.idleTTL {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the limit of their client IP with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "10")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
					"data":    "rate limit exceeded, retry later",
				})
			}
			return next(c)
		}
	}
}
