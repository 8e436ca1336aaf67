package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the token buckets. Whitelist entries are IPs or CIDRs.
type RateLimitConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	Whitelist []string
}

// limiterEntry holds a rate limiter and the last time it was seen.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore is a threadsafe store mapping keys (user or IP) to limiter entries.
// A background janitor removes stale entries to avoid unbounded memory growth.
type limiterStore struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	staleAfter time.Duration
	limit      rate.Limit
	burst      int
}

func newLimiterStore(limit rate.Limit, burst int, staleAfter time.Duration) *limiterStore {
	store := &limiterStore{
		entries:    make(map[string]*limiterEntry),
		staleAfter: staleAfter,
		limit:      limit,
		burst:      burst,
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			store.cleanup(time.Now())
		}
	}()
	return store
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = time.Now()
	s.mu.Unlock()
	return e.limiter.Allow()
}

func (s *limiterStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.staleAfter)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

type whitelist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseWhitelist(entries []string) whitelist {
	var w whitelist
	for _, part := range entries {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if ip := net.ParseIP(p); ip != nil {
			w.ips = append(w.ips, ip)
			continue
		}
		if _, n, err := net.ParseCIDR(p); err == nil {
			w.nets = append(w.nets, n)
		}
	}
	return w
}

func (w whitelist) contains(clientIP string) bool {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, allowed := range w.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, n := range w.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// limitKey buckets authenticated callers by user and everyone else by IP.
func limitKey(c *gin.Context) string {
	if v, ok := c.Get("userId"); ok {
		if id, ok := v.(uuid.UUID); ok && id != uuid.Nil {
			return "uid:" + id.String()
		}
	}
	return "ip:" + c.ClientIP()
}

func tooManyRequests(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, types.NewErrorResponse("RATE_LIMIT_EXCEEDED", "Too many requests"))
}

// RateLimitMiddleware performs per-user (when authenticated) or per-IP token
// bucket limiting. It skips preflight requests and the /health and /metrics
// endpoints. Mount it after authentication to get per-user buckets.
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	allowed := parseWhitelist(cfg.Whitelist)
	store := newLimiterStore(rate.Limit(cfg.RPS), cfg.Burst, 10*time.Minute)

	return func(c *gin.Context) {
		switch {
		case c.Request.Method == http.MethodOptions,
			c.Request.URL.Path == "/health",
			c.Request.URL.Path == "/metrics",
			allowed.contains(c.ClientIP()):
			c.Next()
			return
		}
		if !store.allow(limitKey(c)) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// RateLimitAuthMiddleware applies a stricter per-IP limit for /login and /register,
// independent from the global limiter.
func RateLimitAuthMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	store := newLimiterStore(rate.Limit(1.0), 5, 10*time.Minute)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !store.allow("auth:" + c.ClientIP()) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}
