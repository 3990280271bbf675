package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TenantRateLimiter caps request throughput per tenant with a fixed-window
// counter. Sync triggers and dry runs are cheap to request and expensive to
// execute, so the API is throttled ahead of the handlers. Requests without
// a resolved tenant (health probes, rejected auth) are keyed by client
// address instead.
type TenantRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	limit   int
	window  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type rateBucket struct {
	remaining int
	resetAt   time.Time
}

// NewTenantRateLimiter creates a limiter allowing limit requests per window
// and key
func NewTenantRateLimiter(limit int, window time.Duration) *TenantRateLimiter {
	l := &TenantRateLimiter{
		buckets: make(map[string]*rateBucket),
		limit:   limit,
		window:  window,
		stop:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// take consumes one token for the key and reports the remaining budget
func (l *TenantRateLimiter) take(key string, now time.Time) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &rateBucket{remaining: l.limit, resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	if b.remaining == 0 {
		return 0, false
	}
	b.remaining--
	return b.remaining, true
}

// sweep drops buckets whose window has passed so idle tenants do not
// accumulate
func (l *TenantRateLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if !now.Before(b.resetAt) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the background sweeper
func (l *TenantRateLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// RateLimit throttles requests per tenant. Runs after the tenant middleware
// so the tenant id is the limiting key.
func RateLimit(limiter *TenantRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetTenantID(c)
		if key == "" {
			key = c.ClientIP()
		}

		remaining, ok := limiter.take(key, time.Now())
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests. Please try again later.",
				},
			})
			return
		}
		c.Next()
	}
}
