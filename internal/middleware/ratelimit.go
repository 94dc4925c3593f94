package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter allows at most limit requests per client address within each window.
// A client's window starts at its first request and resets once it has elapsed.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	clients   map[string]*rateWindow
	lastSweep time.Time
	onLimited func()
}

// NewRateLimiter creates a limiter. now defaults to time.Now.
func NewRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limit:     limit,
		window:    window,
		now:       now,
		clients:   make(map[string]*rateWindow),
		lastSweep: now(),
	}
}

// OnLimited registers a callback run for every refused request
func (l *RateLimiter) OnLimited(fn func()) {
	l.onLimited = fn
}

// Allow records a request from key. When refused it also returns how long until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.clients[key] = &rateWindow{start: now, count: 1}
		return true, 0
	}

	if w.count >= l.limit {
		return false, w.start.Add(l.window).Sub(now)
	}

	w.count++
	return true, 0
}

// sweep drops expired windows, at most once per window
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// Middleware answers 429 once a client exceeds its allowance
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.Allow(clientIP(r))
		if !ok {
			if l.onLimited != nil {
				l.onLimited()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			respondError(w, "too_many_requests", "Too many requests, try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request's source address without port.
// Forwarding headers only count when the router was told to trust a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
