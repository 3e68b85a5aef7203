// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the deck-live API.

# Route Registration

NewRouter builds an http.ServeMux over the long-lived services and wraps it
in CORS, limited to Config.CORSOrigins. With Config.TrustProxyHeaders it
also applies middleware.RealIP so rate limits key on the forwarded client:

	h := router.NewRouter(router.Deps{
		Config:    cfg,
		Directory: dir,
		Engine:    engine,
		Hub:       hub,
		Generator: gen,
		Limiter:   limiter,
	})

Every API route is wrapped in middleware.WithMetrics (labelled by route
pattern) and middleware.WithLogging.

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Sessions (public, addressed by join code in any case):

	POST /sessions                           - Create session (returns presenter key)
	GET  /sessions/{code}                    - Session info
	POST /sessions/{code}/join               - Register a participant
	POST /sessions/{code}/leave              - Unregister a participant
	GET  /sessions/{code}/participants/count - Live participant count
	GET  /sessions/{code}/qr                 - PNG QR code of the join link
	GET  /sessions/{code}/state              - Full snapshot
	GET  /sessions/{code}/realtime           - Websocket change feed

Polls (writes require X-Presenter-Key):

	GET  /sessions/{code}/polls               - List polls
	POST /sessions/{code}/polls               - Create poll for a slide
	POST /sessions/{code}/polls/toggle        - One-button create/open/close
	GET  /sessions/{code}/slides/{slide}/poll - Poll for a slide
	GET  /polls/{id}                          - Poll by id
	POST /polls/{id}/open                     - Open
	POST /polls/{id}/close                    - Close
	POST /polls/{id}/reset                    - Delete all responses
	GET  /polls/{id}/summary                  - Aggregated responses

Responses:

	GET  /polls/{id}/responses        - List responses
	POST /polls/{id}/responses        - Submit or replace a response
	POST /polls/{id}/responses/manual - Presenter-injected response

Collaborators:

	POST /generate   - Rate-limited text generation
	POST /auth/check - Deck password gate
*/
package router
