// Package ratelimit throttles state-changing requests per client.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"reimburse/internal/cache"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	MaxClients        int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
	}
}

type window struct {
	mu       sync.Mutex
	start    time.Time
	requests int
}

// Limiter counts requests per client in fixed one-minute windows. Idle
// clients fall out of the underlying cache; register Cleaner() with a
// cache.Janitor to sweep them.
type Limiter struct {
	limit   int
	clients *cache.LRUCache[*window]
	now     func() time.Time
	mu      sync.Mutex
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	return &Limiter{
		limit:   config.RequestsPerMinute,
		clients: cache.NewLRUCache[*window](config.MaxClients, 2*time.Minute),
		now:     time.Now,
	}
}

// Allow records one request from clientIP and reports whether it is within
// the limit.
func (l *Limiter) Allow(clientIP string) bool {
	now := l.now()

	l.mu.Lock()
	w, ok := l.clients.Get(clientIP)
	if !ok {
		w = &window{start: now}
		l.clients.Set(clientIP, w)
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.start) >= time.Minute {
		w.start = now
		w.requests = 0
	}
	w.requests++
	return w.requests <= l.limit
}

// ActiveClients returns the number of currently tracked clients
func (l *Limiter) ActiveClients() int {
	return l.clients.Size()
}

func (l *Limiter) Cleaner() cache.Cleaner {
	return l.clients
}

// Middleware limits mutating methods only; reads are never throttled.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if !l.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
