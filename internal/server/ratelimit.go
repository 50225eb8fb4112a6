package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	defaultLimiterIdle    = 10 * time.Minute
	defaultLimiterClients = 10000
)

// RateLimiter keeps one token bucket per client key. A bucket is dropped
// after the idle window without traffic, and the least recently seen
// client is dropped once MaxClients is reached.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	idle     time.Duration
	capacity int
	rejected atomic.Int64
	logger   *errors.Logger
}

// NewRateLimiter builds a limiter allowing cfg.RequestsPerMin per client
// with a bucket of cfg.BurstCapacity.
func NewRateLimiter(cfg config.RateLimitConfig, logger *errors.Logger) *RateLimiter {
	idle := cfg.Window
	if idle <= 0 {
		idle = defaultLimiterIdle
	}
	capacity := cfg.MaxClients
	if capacity <= 0 {
		capacity = defaultLimiterClients
	}
	return &RateLimiter{
		buckets:  expirable.NewLRU[string, *rate.Limiter](capacity, nil, idle),
		limit:    rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:    cfg.BurstCapacity,
		idle:     idle,
		capacity: capacity,
		logger:   logger,
	}
}

// Allow spends one token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding pushes the idle deadline out.
	l.buckets.Add(key, bucket)
	l.mu.Unlock()

	if bucket.Allow() {
		return true
	}
	l.rejected.Add(1)
	return false
}

// GetStats reports the limiter settings and load for /stats.
func (l *RateLimiter) GetStats() map[string]any {
	return map[string]any{
		"active_clients":  l.buckets.Len(),
		"max_clients":     l.capacity,
		"rate_per_minute": float64(l.limit) * 60.0,
		"burst_capacity":  l.burst,
		"idle_eviction":   l.idle.String(),
		"rejected_total":  l.rejected.Load(),
	}
}

// Close drops every bucket.
func (l *RateLimiter) Close() {
	l.buckets.Purge()
	if l.logger != nil {
		l.logger.Debug("Rate limiter closed", "rejected_total", l.rejected.Load())
	}
}

// rateLimitKey picks the bucket a request draws from: the caller's API key
// when limiting by key, else the client address. Empty means unlimited.
func rateLimitKey(r *http.Request, cfg *config.RateLimitConfig) string {
	if cfg.ByAPIKey {
		if key := requestAPIKey(r); key != "" {
			return "api:" + key
		}
	}
	if cfg.ByIP {
		return "ip:" + clientIP(r)
	}
	return ""
}

// requestAPIKey reads X-API-Key, falling back to a bearer token.
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return key
	}
	return ""
}

// clientIP prefers the first parseable X-Forwarded-For hop, then
// X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	for hop := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(hop); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
