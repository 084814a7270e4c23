package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultRateLimit is the sustained per-IP request rate (requests/second).
	defaultRateLimit = 10
	// defaultRateBurst is the maximum instantaneous per-IP burst.
	defaultRateBurst = 20
	// limiterTTL is how long an idle client's limiter survives before eviction.
	limiterTTL = 5 * time.Minute
	// evictInterval is how often the eviction sweep runs.
	evictInterval = time.Minute
)

// ipLimiter pairs a token bucket with the time it was last consulted.
type ipLimiter struct {
	limiter *rate.Limiter
	// lastSeen drives eviction of idle clients.
	lastSeen time.Time
}

// rateLimiter applies a per-client-IP token bucket to an HTTP handler.
// Each distinct client IP gets its own bucket; idle buckets are evicted
// after limiterTTL so the map does not grow without bound.
type rateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*ipLimiter
	rps      rate.Limit
	burst    int
	log      *slog.Logger
	stopOnce sync.Once
	stopCh   chan struct{}
}

// newRateLimiter creates a rateLimiter and starts its eviction goroutine.
// The returned stop function terminates the goroutine; call it on shutdown.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		clients: make(map[string]*ipLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		log:     log,
		stopCh:  make(chan struct{}),
	}

	go rl.evictLoop()

	stop := func() {
		rl.stopOnce.Do(func() { close(rl.stopCh) })
	}
	return rl, stop
}

// allow reports whether the client identified by ip may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = time.Now()

	return cl.limiter.Allow()
}

// middleware rejects over-limit requests with 429 before invoking next.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip) {
			rl.log.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// evictLoop periodically drops limiters for clients not seen recently.
func (rl *rateLimiter) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

// evict removes limiters idle for longer than limiterTTL.
func (rl *rateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-limiterTTL)
	for ip, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// clientIP extracts the client's IP address, preferring X-Forwarded-For
// when the server sits behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First entry is the originating client.
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
