// Package reqctx carries per request metadata through contexts.
package reqctx

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	keyClientIP contextKey = "clientIP"
	keySubject  contextKey = "subject"
)

// GetClientIP extracts the client IP from an HTTP request, checking
// X-Forwarded-For and X-Real-IP headers for proxied requests.
func GetClientIP(r *http.Request) string {
	// The leftmost X-Forwarded-For entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if strings.HasPrefix(addr, "[") {
		if host, _, found := strings.Cut(addr, "]:"); found {
			return host[1:]
		}
		return strings.Trim(addr, "[]")
	}
	if host, _, found := strings.Cut(addr, ":"); found {
		return host
	}
	return addr
}

// WithClientIP adds the client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP extracts the client IP from the context.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(keyClientIP).(string); ok {
		return v
	}
	return ""
}

// WithSubject adds the authenticated token subject to the context.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, keySubject, sub)
}

// Subject extracts the authenticated token subject, empty when the request
// was not authenticated.
func Subject(ctx context.Context) string {
	if v, ok := ctx.Value(keySubject).(string); ok {
		return v
	}
	return ""
}
