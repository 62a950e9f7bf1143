package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders writes rate limit headers to the response.
func WriteHeaders(w http.ResponseWriter, result Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if !result.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// ResponseWriter injects rate limit headers before the response is written.
type ResponseWriter struct {
	http.ResponseWriter
	result      Result
	wroteHeader bool
}

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter, result Result) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, result: result}
}

// WriteHeader implements http.ResponseWriter.
func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.injectHeaders()
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write implements http.ResponseWriter.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.injectHeaders()
	return rw.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *ResponseWriter) injectHeaders() {
	if !rw.wroteHeader {
		WriteHeaders(rw.ResponseWriter, rw.result)
		rw.wroteHeader = true
	}
}
