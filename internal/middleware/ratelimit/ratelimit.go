// Package ratelimit limits how many requests one client may make per minute.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	window    = time.Minute
	staleFor  = 10 * time.Minute
	defaultRP = 60
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: defaultRP,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter counts requests per client in fixed one-minute windows that start
// at the client's first request.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	limit   int
	now     func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

type bucket struct {
	windowStart time.Time
	lastSeen    time.Time
	count       int
}

// NewLimiter starts a limiter and its background sweep of idle clients.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaultRP
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &Limiter{
		clients:         make(map[string]*bucket),
		limit:           config.RequestsPerMinute,
		now:             time.Now,
		cleanupInterval: config.CleanupInterval,
		stop:            make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow records a request from client. When the request is over the limit
// it returns false and how long until the window resets.
func (rl *Limiter) Allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[client]
	if !ok || now.Sub(b.windowStart) >= window {
		rl.clients[client] = &bucket{windowStart: now, lastSeen: now, count: 1}
		return true, 0
	}

	b.lastSeen = now
	b.count++
	if b.count <= rl.limit {
		return true, 0
	}
	return false, b.windowStart.Add(window).Sub(now)
}

func (rl *Limiter) sweep() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleFor)
	for client, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the background sweep. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware limits requests per client address. Requests for which exempt
// returns true are never counted; exempt may be nil. Rejected requests get a
// Retry-After header and are passed to onLimit, or a plain 429 if it is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, exempt func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt != nil && exempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			allowed, wait := rl.Allow(extractIP(r))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", retryAfter(wait))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

// retryAfter renders wait as whole seconds, rounded up and at least 1.
func retryAfter(wait time.Duration) string {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ReadOnly exempts safe methods so only mutating requests are limited.
func ReadOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
