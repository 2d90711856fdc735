package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/config"
)

// clientLimiters hands out one token bucket per client IP and forgets
// clients idle for longer than ttl.
type clientLimiters struct {
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(cfg config.RateLimitConfig) *clientLimiters {
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	return &clientLimiters{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		ttl:     cfg.IdleTTL,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	l.sweep(now)
	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// sweep must be called with mu held
func (l *clientLimiters) sweep(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.ttl {
			delete(l.clients, ip)
		}
	}
}

func (l *clientLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit creates a per-IP rate limiting middleware
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newClientLimiters(cfg))
}

func rateLimit(limiters *clientLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
