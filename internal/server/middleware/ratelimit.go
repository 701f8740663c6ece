package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 30 * time.Minute
)

// keyedLimiters hands out one token bucket per key and forgets keys idle for
// longer than limiterIdleTTL.
type keyedLimiters[K comparable] struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	entries map[K]*limiterEntry
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newKeyedLimiters[K comparable](ctx context.Context, requestsPerSecond float64, burst int) *keyedLimiters[K] {
	kl := &keyedLimiters[K]{
		rps:     rate.Limit(requestsPerSecond),
		burst:   burst,
		entries: make(map[K]*limiterEntry),
	}
	go kl.sweep(ctx)
	return kl
}

func (kl *keyedLimiters[K]) allow(key K) bool {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(kl.rps, kl.burst)}
		kl.entries[key] = e
	}
	e.lastAccess = time.Now()
	kl.mu.Unlock()

	return e.limiter.Allow()
}

func (kl *keyedLimiters[K]) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleTTL)
			kl.mu.Lock()
			for k, e := range kl.entries {
				if e.lastAccess.Before(cutoff) {
					delete(kl.entries, k)
				}
			}
			kl.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func tooManyRequests(w http.ResponseWriter) {
	http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
}

// RateLimitByIP limits unauthenticated routes per client address. It expects
// chi's RealIP middleware to have rewritten r.RemoteAddr.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newKeyedLimiters[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(r.RemoteAddr) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-company rate limiting. Requests without a company
// pass through.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newKeyedLimiters[uuid.UUID](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID, ok := CompanyIDFromContext(r.Context())
			if ok && !limiters.allow(companyID) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
