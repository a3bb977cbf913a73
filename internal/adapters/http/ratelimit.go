package httpadapter

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// clientRateLimiter throttles uploads per remote host so one client cannot
// starve the classification pipeline.
type clientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newClientRateLimiter(rps float64, burst int) *clientRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *clientRateLimiter) allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		// bound the per-host table; dropping it just refills everyone's burst
		if len(l.limiters) >= 10000 {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[host] = limiter
	}
	return limiter.Allow()
}

func rateLimitMiddleware(limiter *clientRateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(clientHost(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many uploads", "upload rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
