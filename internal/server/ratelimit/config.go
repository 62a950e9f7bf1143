package ratelimit

import (
	"net/http"
	"strings"
	"time"
)

// Tier is a named limiter applied to a class of requests.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds the read and write tiers.
type Config struct {
	Read  Tier
	Write Tier
}

// New creates a Config from per minute budgets. Burst is a sixth of the
// budget, at least 1.
func New(readPerMin, writePerMin int) *Config {
	return &Config{
		Read:  Tier{Name: "read", Limiter: NewLimiter(readPerMin, time.Minute, max(readPerMin/6, 1))},
		Write: Tier{Name: "write", Limiter: NewLimiter(writePerMin, time.Minute, max(writePerMin/6, 1))},
	}
}

// Match returns the tier for a request, or nil when it is not limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/api/health" {
		return nil
	}
	// Window queries carry their parameters in a POST body but do not write.
	if method == http.MethodPost && strings.HasSuffix(path, "/rows/query") {
		return &c.Read
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return &c.Read
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return &c.Write
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	c.Read.Limiter.Close()
	c.Write.Limiter.Close()
}

// BuildKey creates a bucket key from the caller identity and tier name.
func BuildKey(identifier, tierName string) string {
	return identifier + ":" + tierName
}
