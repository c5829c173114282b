package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	ClientExpiration  time.Duration // idle clients are forgotten after this
	MaxClients        int           // 0 means unbounded
}

// DefaultRateLimitConfig returns the defaults for mutating endpoints
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        10000,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client
type RateLimiter struct {
	config   *RateLimitConfig
	clients  map[string]*clientLimiter
	mu       sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
// Call Stop to end the loop.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	rl := &RateLimiter{
		config:   config,
		clients:  make(map[string]*clientLimiter),
		stopChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow reports whether clientID may make a request now. New clients are
// refused once MaxClients are tracked.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[clientID]
	if !ok {
		if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
			rl.mu.Unlock()
			return false
		}
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
		}
		rl.clients[clientID] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()

	return c.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopChan:
			return
		}
	}
}

// cleanup forgets clients idle longer than ClientExpiration and returns
// how many were removed
func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.config.ClientExpiration {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

// Clients returns how many clients are tracked
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// ClientIDFunc extracts a client identifier from a request
type ClientIDFunc func(*http.Request) string

// RateLimit answers 429 once a client exceeds its budget. A nil limiter
// disables the check.
func RateLimit(limiter *RateLimiter, clientID ClientIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		limit := strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', -1, 64)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientID(r)) {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", limit)
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
