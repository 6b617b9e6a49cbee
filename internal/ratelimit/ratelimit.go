// Package ratelimit provides per-client token-bucket rate limiting for the risk API.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/txrisk/internal/metrics"
)

// Config configures rate limiting
type Config struct {
	// RequestsPerSecond is the sustained refill rate per client.
	RequestsPerSecond float64
	// BurstSize is the bucket capacity.
	BurstSize int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
	// Cost returns how many tokens a request consumes. Nil means 1.
	Cost func(c *gin.Context) float64
}

// DefaultConfig returns defaults for a given sustained rate.
func DefaultConfig(rps int) Config {
	if rps <= 0 {
		rps = 100
	}
	return Config{
		RequestsPerSecond: float64(rps),
		BurstSize:         rps * 2,
		CleanupInterval:   time.Minute,
	}
}

// Limiter tracks token buckets by key
type Limiter struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// New creates a rate limiter and starts its cleanup loop.
func New(cfg Config) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	l := &Limiter{
		cfg:     cfg,
		now:     now,
		clients: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// cleanup drops buckets that have been idle long enough to be full again.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-2 * l.cfg.CleanupInterval)
			for key, b := range l.clients {
				if b.lastCheck.Before(cutoff) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow takes cost tokens from key's bucket. When the bucket is short it
// returns false and how long until enough tokens accrue.
func (l *Limiter) Allow(key string, cost float64) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.cfg.BurstSize)
	cost = math.Min(math.Max(cost, 0), capacity)

	b, ok := l.clients[key]
	if !ok {
		b = &bucket{tokens: capacity, lastCheck: now}
		l.clients[key] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	b.tokens = math.Min(capacity, b.tokens+elapsed*l.cfg.RequestsPerSecond)
	b.lastCheck = now

	if b.tokens >= cost {
		b.tokens -= cost
		return true, 0
	}
	if l.cfg.RequestsPerSecond <= 0 {
		return false, time.Minute
	}
	wait := (cost - b.tokens) / l.cfg.RequestsPerSecond
	return false, time.Duration(wait * float64(time.Second))
}

// Middleware returns a Gin middleware that rate limits by client IP.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cost := 1.0
		if l.cfg.Cost != nil {
			cost = l.cfg.Cost(c)
		}

		allowed, wait := l.Allow(c.ClientIP(), cost)
		if !allowed {
			retryAfter := int(math.Ceil(wait.Seconds()))
			metrics.RateLimitedTotal.Inc()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please slow down.",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// BatchCost charges batch endpoints more than single lookups.
func BatchCost(batchCost float64) func(c *gin.Context) float64 {
	return func(c *gin.Context) float64 {
		if c.Request.Method == http.MethodPost && c.FullPath() == "/v1/risk/batch" {
			return batchCost
		}
		return 1
	}
}
