// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms).

# Metrics

WithMetrics records the Prometheus request counter, duration histogram and
in-flight gauge, labelled by route pattern:

	mux.HandleFunc(pattern, middleware.WithMetrics(pattern, middleware.WithLogging(h)))

Both wrappers pass http.Hijacker through so websocket upgrades still work.

# CORS Middleware

Enable cross-origin requests for deck frontends:

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigins)(mux),
	}

Allows methods GET, POST, OPTIONS with headers Content-Type,
Authorization, X-Presenter-Key. An empty origin list answers with a
wildcard; credentials are never allowed.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Error bodies always carry a machine-readable code. WriteError picks status
and code from the domain sentinel:

	models.ErrInvalidCode  -> 400 invalid_code
	models.ErrNotFound     -> 404 not_found
	models.ErrPollClosed   -> 409 poll_closed
	models.ErrEmptyValue   -> 400 empty_value
	models.ErrInvalidInput -> 400 invalid_input
	models.ErrForbidden    -> 403 forbidden
	models.ErrRateLimited  -> 429 rate_limited
	anything else          -> 500 internal (logged, message is the fallback)

# Validation

Request types implement Validatable with cohesivestack/valgo rules:

	var req generateRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

# Client IP Extraction

GetClientIP reads RemoteAddr. Behind a reverse proxy, wrap the handler in
RealIP so X-Forwarded-For or X-Real-IP replace it first:

	handler = middleware.RealIP(handler)
	ip := middleware.GetClientIP(r)

Used as the rate limit key for text generation.
*/
package middleware
