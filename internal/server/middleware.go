package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/server/reqctx"
)

// AuthMiddleware requires a valid HMAC signed JWT bearer token on /api/
// requests other than health checks. The token subject is added to the
// context.
func AuthMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" || !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			sub, err := validateBearer(r.Header.Get("Authorization"), jwtSecret)
			if err != nil {
				slog.InfoContext(r.Context(), "Unauthorized", "path", r.URL.Path, "err", err)
				writeError(r.Context(), w, apierrors.Unauthorized())
				return
			}
			next.ServeHTTP(w, r.WithContext(reqctx.WithSubject(r.Context(), sub)))
		})
	}
}

func validateBearer(header string, jwtSecret []byte) (string, error) {
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	scheme, tokenString, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LoggingMiddleware records the client IP in the context and logs every
// request once it completes.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := reqctx.GetClientIP(r)
		ctx := reqctx.WithClientIP(r.Context(), ip)
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		slog.DebugContext(ctx, "http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "ip", ip, "dur", time.Since(start).Round(time.Microsecond))
	})
}
