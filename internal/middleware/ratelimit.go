package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig sets the token-bucket parameters for one limiter instance.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate.
	RequestsPerMinute int
	// BurstSize is the bucket capacity: how far a client may run ahead of
	// the sustained rate.
	BurstSize int
	// CleanupInterval is how often idle client buckets are evicted.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig covers the authenticated API surface. Dashboards
// fire several list requests at once, hence the generous burst.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 200,
		BurstSize:         50,
		CleanupInterval:   5 * time.Minute,
	}
}

// AuthRateLimitConfig throttles login and registration to slow credential
// stuffing.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// UploadRateLimitConfig throttles document uploads.
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// bucket is the per-client token state. Tokens refill lazily on access, so an
// idle bucket costs nothing until the cleanup pass drops it.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is an in-process token-bucket limiter keyed by client. Each
// instance owns its buckets, so separate limiters (auth, general, upload)
// never share budgets.
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*bucket
	stopCh  chan struct{}
}

// NewRateLimiter builds a limiter and starts its eviction loop. Call Stop on
// shutdown.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go rl.evictIdle()
	return rl
}

// evictIdle drops buckets that have not been touched recently so the map does
// not grow with every IP that ever connected.
func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop terminates the eviction loop.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// refill credits b with tokens earned since its last access, capped at the
// burst size. Callers must hold rl.mu.
func (rl *RateLimiter) refill(b *bucket, now time.Time) {
	perSecond := float64(rl.config.RequestsPerMinute) / 60.0
	b.tokens = min(float64(rl.config.BurstSize), b.tokens+now.Sub(b.lastSeen).Seconds()*perSecond)
	b.lastSeen = now
}

// Allow consumes one token for key, reporting whether the request may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{
			tokens:   float64(rl.config.BurstSize) - 1,
			lastSeen: now,
		}
		return true
	}

	rl.refill(b, now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RemainingTokens reports the current budget for key without consuming it.
func (rl *RateLimiter) RemainingTokens(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		return rl.config.BurstSize
	}
	rl.refill(b, time.Now())
	return int(b.tokens)
}

// RateLimitMiddleware rejects over-budget requests with 429 and advertises
// the remaining budget in X-RateLimit headers.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))

		c.Next()
	}
}

// rateLimitKey buckets authenticated traffic by user so colleagues behind one
// office NAT don't exhaust a shared IP budget; anonymous traffic (login,
// register) falls back to the client IP.
func rateLimitKey(c *gin.Context) string {
	if actor, ok := GetActor(c); ok && actor.UserID != "" {
		return "user:" + actor.UserID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
