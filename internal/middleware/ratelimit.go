package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Header formatting
	"sync"     // Limiter map guard
	"time"     // Access timestamps

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/time/rate"     // Token bucket limiter
)

// clientLimiter is the limiter of one client and when it was last used
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client IP
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	retryAfter int           // Seconds until one attempt is refilled
	idle       time.Duration // Entries unused for this long are dropped

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	now      func() time.Time
}

// NewRateLimiter allows perMinute requests per client with an equal burst
func NewRateLimiter(perMinute int, idle time.Duration) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &RateLimiter{
		limit:      rate.Limit(float64(perMinute) / 60.0),
		burst:      perMinute,
		retryAfter: (60 + perMinute - 1) / perMinute,
		idle:       idle,
		limiters:   make(map[string]*clientLimiter),
		now:        time.Now,
	}
}

// Middleware rejects clients over their budget with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if !rl.get(client).AllowN(rl.now(), 1) {
			logrus.WithFields(logrus.Fields{
				"client": client,       // Client IP
				"path":   c.FullPath(), // Throttled route
			}).Warn("Rate limit exceeded")
			c.Header("Retry-After", strconv.Itoa(rl.retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// get returns the limiter of a client, dropping idle entries on the way
func (rl *RateLimiter) get(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if rl.idle > 0 {
		for key, cl := range rl.limiters {
			if key != client && now.Sub(cl.lastAccess) > rl.idle {
				delete(rl.limiters, key)
			}
		}
	}
	cl, ok := rl.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[client] = cl
	}
	cl.lastAccess = now
	return cl.limiter
}
