package http

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	applog "statementlens/internal/log"
)

// limiterTTL is how long an idle client's limiter is kept
const limiterTTL = time.Minute

// InternalTokenHeader carries the per-process token the report page sends
// when it calls this server's own analysis route
const InternalTokenHeader = "X-Statementlens-Internal"

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	now     func() time.Time
	exempt  func(*http.Request) bool
	log     *applog.Logger
}

// NewRateLimiter allows perSecond requests per client with the given burst.
// A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int, logger *applog.Logger) *RateLimiter {
	if logger == nil {
		logger = applog.Discard()
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		log:     logger.WithComponent(applog.ComponentRateLimit),
	}
}

// SetExempt skips limiting for requests fn accepts. Call it before
// Middleware.
func (rl *RateLimiter) SetExempt(fn func(*http.Request) bool) {
	rl.exempt = fn
}

// InternalRequest accepts requests carrying token in InternalTokenHeader.
// An empty token accepts nothing.
func InternalRequest(token string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		got := r.Header.Get(InternalTokenHeader)
		return token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
	}
}

// getLimiter returns the limiter for ip, dropping limiters idle past the TTL
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > limiterTTL {
			delete(rl.clients, key)
		}
	}

	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Clients returns the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt != nil && rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if !rl.getLimiter(ip).AllowN(rl.now(), 1) {
			rl.log.Warn("rate limit exceeded", applog.FieldClientIP, ip, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "1")
			if strings.Contains(r.Header.Get("Accept"), "application/json") {
				JSONError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. Behind a trusted proxy chi's
// RealIP middleware has already rewritten it from the forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
