package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"grocer-be/internal/identity"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Auth (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Frontend-heavy apps
	limitFrontend = rate.Limit(20)
	burstFrontend = 40

	// Internal / trusted services
	limitInternal = rate.Limit(100)
	burstInternal = 200
)

const visitorTTL = 3 * time.Minute

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per identity and tier.
type RateLimiter struct {
	internalKey string

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewRateLimiter returns a limiter. Requests carrying internalKey in
// X-Service-Auth get the internal tier; an empty key disables that tier.
func NewRateLimiter(internalKey string) *RateLimiter {
	return &RateLimiter{
		internalKey: internalKey,
		visitors:    make(map[string]*visitor),
		now:         time.Now,
	}
}

// Run removes idle visitors every minute until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *RateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
		}
	}
}

func (l *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := l.resolveRateTier(r)

		// same identity gets separate quotas per tier, e.g. "user:42:strict"
		key := fmt.Sprintf("%s:%s", identityKey(r), tier)

		if !l.getVisitor(key, limit, burst).Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func identityKey(r *http.Request) string {
	if userID, ok := identity.UserIDFrom(r.Context()); ok {
		return "user:" + userID
	}
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// resolveRateTier determines which rate limit policy applies to the request.
func (l *RateLimiter) resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	if l.internalKey != "" && r.Header.Get("X-Service-Auth") == l.internalKey {
		return limitInternal, burstInternal, "internal"
	}

	if strings.HasPrefix(r.URL.Path, "/auth/") || r.Header.Get("X-Action") == "auth" {
		return limitStrict, burstStrict, "strict"
	}

	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return limitFrontend, burstFrontend, "frontend"
	}

	return limitGeneral, burstGeneral, "general"
}
