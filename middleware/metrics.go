// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jpenzell/deck-live/metrics"
)

// WithMetrics records request count, duration and in-flight gauge under
// the route pattern, never the raw path, so join codes and ids do not
// become label values.
func WithMetrics(pattern string, next http.HandlerFunc) http.HandlerFunc {
	method, endpoint := splitPattern(pattern)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		rec := record(w)
		next(rec, r)

		m := method
		if m == "" {
			m = r.Method
		}
		metrics.HTTPRequestsTotal.WithLabelValues(m, endpoint, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(m, endpoint).Observe(time.Since(start).Seconds())
	}
}

// splitPattern turns "POST /polls/{id}/open" into ("POST", "/polls/{id}/open").
func splitPattern(pattern string) (method, path string) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == ' ' {
			return pattern[:i], pattern[i+1:]
		}
	}
	return "", pattern
}
