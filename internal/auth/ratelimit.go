package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// EventLimiter throttles page events per client. Keyboard repeat on the
// arrow keys is the usual source of bursts.
type EventLimiter struct {
	mu              sync.Mutex
	clients         map[string]*clientLimiter
	perSecond       rate.Limit
	burst           int
	idleAfter       time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	now             func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitConfig contains configuration for the event limiter.
type RateLimitConfig struct {
	EventsPerSecond float64       // Sustained events per client (default: 20)
	Burst           int           // Events allowed at once (default: 2x rate)
	IdleAfter       time.Duration // Forget clients idle this long (default: 10m)
	CleanupInterval time.Duration // How often to forget idle clients (default: 5m)
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		EventsPerSecond: 20,
		Burst:           40,
		IdleAfter:       10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewEventLimiter creates a limiter and starts its cleanup loop.
func NewEventLimiter(cfg RateLimitConfig) *EventLimiter {
	if cfg.EventsPerSecond <= 0 {
		cfg.EventsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(2 * cfg.EventsPerSecond)
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	l := &EventLimiter{
		clients:         make(map[string]*clientLimiter),
		perSecond:       rate.Limit(cfg.EventsPerSecond),
		burst:           cfg.Burst,
		idleAfter:       cfg.IdleAfter,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}
	go l.cleanupLoop()
	return l
}

// Stop stops the background cleanup goroutine.
func (l *EventLimiter) Stop() {
	close(l.stopCleanup)
}

// Allow reports whether the client identified by key may send an event now.
func (l *EventLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (l *EventLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *EventLimiter) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleAfter {
			delete(l.clients, key)
		}
	}
}

// Middleware rejects clients over their rate with 429. Clients are keyed by
// IP and the page id route parameter.
func (l *EventLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.Param("pageID")
		if !l.Allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
