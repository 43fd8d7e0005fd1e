package mcp

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-client request rate over the HTTP
// transport using the token-bucket algorithm, grounded on the teacher's
// identical RateLimiter (ratelimit.go). The pack carried
// golang.org/x/time as an indirect dependency with no direct importer
// anywhere in the tree; this is its first direct use.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter returns a limiter allowing requestsPerSecond per
// client, with a burst of twice that to tolerate bursty traffic.
func NewRateLimiter(requestsPerSecond int) (*RateLimiter, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("mcp: rate limit must be positive, got %d", requestsPerSecond)
	}
	return &RateLimiter{
		limiters: map[string]*rate.Limiter{},
		limit:    rate.Limit(requestsPerSecond),
		burst:    requestsPerSecond * 2,
	}, nil
}

func (rl *RateLimiter) limiterFor(clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[clientID]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[clientID] = l
	}
	return l
}

// Middleware wraps next, rejecting requests beyond the per-client rate
// with 429 Too Many Requests.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientIP(r)
		if !rl.limiterFor(clientID).Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
