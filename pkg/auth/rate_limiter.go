package auth

import (
	"sync"
	"time"
)

// IPRateLimiter is a fixed-window per-IP request limiter used by the auth
// middleware. Windows reset every minute; stale entries are swept lazily.
type IPRateLimiter struct {
	mu        sync.Mutex
	limit     int
	windows   map[string]*window
	lastSweep time.Time
}

type window struct {
	count int
	start time.Time
}

// NewIPRateLimiter creates a limiter allowing limit requests per minute per IP
func NewIPRateLimiter(limit int) *IPRateLimiter {
	return &IPRateLimiter{
		limit:     limit,
		windows:   make(map[string]*window),
		lastSweep: time.Now(),
	}
}

// Allow reports whether the given IP may make another request
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > 5*time.Minute {
		l.sweep(now)
	}

	w, ok := l.windows[ip]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.windows[ip] = &window{count: 1, start: now}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *IPRateLimiter) sweep(now time.Time) {
	for ip, w := range l.windows {
		if now.Sub(w.start) >= time.Minute {
			delete(l.windows, ip)
		}
	}
	l.lastSweep = now
}
