// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpenzell/deck-live/models"
)

// statusRecorder captures the status code written by the next handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func record(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := record(w)

		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		next(rec, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	CodedErrorResponse(w, statusCode, codeForStatus(statusCode), message)
}

// CodedErrorResponse writes a JSON error response with an explicit error code
func CodedErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	})
}

// WriteError maps a domain error to its status and code. Unknown errors
// are logged and reported as a 500 with fallback as the message.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrInvalidCode):
		CodedErrorResponse(w, http.StatusBadRequest, models.CodeInvalidCode, "Join code must be 4 letters or digits")
	case errors.Is(err, models.ErrNotFound):
		CodedErrorResponse(w, http.StatusNotFound, models.CodeNotFound, "Not found")
	case errors.Is(err, models.ErrPollClosed):
		CodedErrorResponse(w, http.StatusConflict, models.CodePollClosed, "Poll is closed")
	case errors.Is(err, models.ErrEmptyValue):
		CodedErrorResponse(w, http.StatusBadRequest, models.CodeEmptyValue, "Response value is empty")
	case errors.Is(err, models.ErrInvalidInput):
		CodedErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, err.Error())
	case errors.Is(err, models.ErrForbidden):
		CodedErrorResponse(w, http.StatusForbidden, models.CodeForbidden, "Presenter key required")
	case errors.Is(err, models.ErrRateLimited):
		CodedErrorResponse(w, http.StatusTooManyRequests, models.CodeRateLimited, "Rate limit exceeded, wait a moment")
	default:
		slog.Error("request failed", "message", fallback, "error", err)
		CodedErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, fallback)
	}
}

func codeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return models.CodeInvalidInput
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return models.CodeForbidden
	case http.StatusTooManyRequests:
		return models.CodeRateLimited
	}
	if statusCode >= 500 {
		return models.CodeInternal
	}
	return ""
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS allows cross-origin requests from the deck frontend. With no
// allowed origins any origin may call the API; otherwise only the listed
// ones get an Access-Control-Allow-Origin. Credentials are never allowed,
// the presenter key travels in a header.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(allowed) == 0:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			default:
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Presenter-Key")

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RealIP replaces RemoteAddr with the address a reverse proxy forwarded,
// taken from X-Forwarded-For, then X-Real-IP. Only install it behind a
// proxy that overwrites those headers; clients can set them freely.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := forwardedIP(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}

// GetClientIP extracts the client IP address from RemoteAddr. Forwarding
// headers count only after RealIP has applied them.
func GetClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
