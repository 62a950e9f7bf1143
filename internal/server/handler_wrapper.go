package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/server/dto"
	"github.com/maruel/sheetgrid/internal/server/ratelimit"
	"github.com/maruel/sheetgrid/internal/server/reqctx"
)

// Config holds the settings applied by the handler wrappers.
type Config struct {
	// MaxRequestBodyBytes limits request bodies; 0 disables the limit.
	MaxRequestBodyBytes int64
	// Limits selects the rate limit tier per request; nil disables limiting.
	Limits *ratelimit.Config
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters can be extracted by tagging struct fields with `path:"name"`.
// *In must implement dto.Validatable.
//
// Example:
//
//	type CreateRowRequest struct {
//	    TableID string `path:"tableID"`
//	}
//
//	func (h *Handler) CreateRow(ctx context.Context, req *CreateRowRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var ok bool
		if w, ok = checkRateLimit(w, r, cfg); !ok {
			return
		}

		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg) {
			return
		}
		populatePathParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			writeError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// WrapRaw wraps a handler that writes its own response body. A returned
// error is rendered as a JSON error response.
func WrapRaw(fn func(http.ResponseWriter, *http.Request) error, cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		if w, ok = checkRateLimit(w, r, cfg); !ok {
			return
		}
		if err := fn(w, r); err != nil {
			writeError(r.Context(), w, err)
		}
	})
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(w http.ResponseWriter, r *http.Request, cfg *Config) (http.ResponseWriter, bool) {
	if cfg == nil {
		return w, true
	}
	tier := cfg.Limits.Match(r.Method, r.URL.Path)
	if tier == nil {
		return w, true
	}
	id := reqctx.Subject(r.Context())
	if id == "" {
		id = reqctx.GetClientIP(r)
	}
	result := tier.Limiter.Allow(ratelimit.BuildKey(id, tier.Name))
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		apiErr := apierrors.RateLimitExceeded(int(result.RetryAfter.Seconds()))
		writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
		return w, false
	}
	return w, true
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *Config) bool {
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apiErr := apierrors.PayloadTooLarge(maxBytesErr.Limit)
			writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeErrorResponseWithCode(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Failed to read request body", nil)
		return false
	}
	if len(body) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			slog.WarnContext(ctx, "Failed to decode request body", "err", err)
			writeErrorResponseWithCode(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Invalid request body", nil)
			return false
		}
	}
	return true
}

// writeError renders err with the status and code it carries, 500 otherwise.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := apierrors.ErrInternal
	var details map[string]any
	var ewsErr apierrors.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		details = ewsErr.Details()
	}
	message := err.Error()
	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		if errorCode == apierrors.ErrInternal {
			// Do not leak database errors.
			message = "internal error"
		}
	} else {
		slog.InfoContext(ctx, "Request rejected", "err", err, "statusCode", statusCode, "code", errorCode)
	}
	writeErrorResponseWithCode(w, statusCode, errorCode, message, details)
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Ptr {
		return reflect.Value{}, false
	}
	elem := val.Elem()
	return elem, elem.Kind() == reflect.Struct
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code apierrors.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := dto.ErrorResponse{
		Error:   dto.ErrorDetails{Code: string(code), Message: message},
		Details: details,
	}
	if len(details) == 0 {
		response.Details = nil
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
