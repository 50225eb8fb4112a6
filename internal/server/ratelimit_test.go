package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"formpilot/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBuckets(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstCapacity: 2, Window: time.Hour}, nil)
	defer l.Close()

	assert.True(t, l.Allow("ip:1"))
	assert.True(t, l.Allow("ip:1"))
	assert.False(t, l.Allow("ip:1"))
	assert.True(t, l.Allow("ip:2"))

	stats := l.GetStats()
	assert.Equal(t, 2, stats["active_clients"])
	assert.Equal(t, 2, stats["burst_capacity"])
	assert.Equal(t, defaultLimiterClients, stats["max_clients"])
	assert.Equal(t, int64(1), stats["rejected_total"])
	assert.InDelta(t, 60.0, stats["rate_per_minute"], 0.001)
}

func TestRateLimiterDropsLeastRecentClient(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 1, BurstCapacity: 1, Window: time.Hour, MaxClients: 2}, nil)
	defer l.Close()

	assert.True(t, l.Allow("ip:1"))
	assert.False(t, l.Allow("ip:1"))
	assert.True(t, l.Allow("ip:2"))
	assert.True(t, l.Allow("ip:3"))

	assert.Equal(t, 2, l.GetStats()["active_clients"])
	// ip:1 was dropped, so it starts over with a full bucket.
	assert.True(t, l.Allow("ip:1"))
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 1, BurstCapacity: 1, Window: 20 * time.Millisecond}, nil)
	defer l.Close()

	assert.True(t, l.Allow("ip:1"))
	assert.False(t, l.Allow("ip:1"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, l.Allow("ip:1"))
}

func TestRateLimiterClose(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstCapacity: 1}, nil)
	l.Allow("ip:1")
	l.Close()
	l.Close()
	assert.Equal(t, 0, l.GetStats()["active_clients"])
	assert.Equal(t, defaultLimiterIdle.String(), l.GetStats()["idle_eviction"])
}

func TestRateLimitKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/process-questions", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	both := &config.RateLimitConfig{ByAPIKey: true, ByIP: true}
	keyOnly := &config.RateLimitConfig{ByAPIKey: true}
	ipOnly := &config.RateLimitConfig{ByIP: true}

	assert.Equal(t, "ip:10.0.0.5", rateLimitKey(r, both))
	assert.Equal(t, "", rateLimitKey(r, keyOnly))

	r.Header.Set("Authorization", "Bearer key-2")
	assert.Equal(t, "api:key-2", rateLimitKey(r, keyOnly))

	r.Header.Set("X-API-Key", "key-1")
	assert.Equal(t, "api:key-1", rateLimitKey(r, both))
	assert.Equal(t, "ip:10.0.0.5", rateLimitKey(r, ipOnly))
}

func TestRequestAPIKeyIgnoresOtherSchemes(t *testing.T) {
	r := httptest.NewRequest("GET", "/stats", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "", requestAPIKey(r))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/health", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	assert.Equal(t, "10.0.0.5", clientIP(r))

	r.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "garbage, 203.0.113.9, 198.51.100.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))

	r = httptest.NewRequest("GET", "/health", nil)
	r.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientIP(r))
}
