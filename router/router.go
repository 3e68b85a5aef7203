// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/handlers"
	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/realtime"
	"github.com/jpenzell/deck-live/sessions"
	"github.com/jpenzell/deck-live/textgen"
)

// Deps are the long-lived services the routes are served from
type Deps struct {
	Config    cliparse.Config
	Directory *sessions.Directory
	Engine    *polls.Engine
	Hub       *realtime.Hub
	Generator textgen.Generator
	Limiter   textgen.Limiter
}

func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(deps.Directory, deps.Engine, deps.Config)
	pollHandler := handlers.NewPollHandler(deps.Directory, deps.Engine, deps.Config)
	responseHandler := handlers.NewResponseHandler(deps.Engine, deps.Config)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Directory, deps.Hub)
	generateHandler := handlers.NewGenerateHandler(deps.Generator, deps.Limiter)
	authHandler := handlers.NewAuthHandler(deps.Config)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithMetrics(pattern, middleware.WithLogging(h)))
	}

	// Health check and metrics
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Sessions
	handle("POST /sessions", sessionHandler.CreateSession)
	handle("GET /sessions/{code}", sessionHandler.GetSession)
	handle("POST /sessions/{code}/join", sessionHandler.JoinSession)
	handle("POST /sessions/{code}/leave", sessionHandler.LeaveSession)
	handle("GET /sessions/{code}/participants/count", sessionHandler.ParticipantCount)
	handle("GET /sessions/{code}/qr", sessionHandler.QRCode)
	handle("GET /sessions/{code}/state", sessionHandler.GetState)
	handle("GET /sessions/{code}/realtime", realtimeHandler.Subscribe)

	// Polls by slide (presenter writes require X-Presenter-Key)
	handle("GET /sessions/{code}/polls", pollHandler.ListPolls)
	handle("POST /sessions/{code}/polls", pollHandler.CreatePoll)
	handle("POST /sessions/{code}/polls/toggle", pollHandler.TogglePoll)
	handle("GET /sessions/{code}/slides/{slide}/poll", pollHandler.PollForSlide)

	// Polls by id
	handle("GET /polls/{id}", pollHandler.GetPoll)
	handle("POST /polls/{id}/open", pollHandler.OpenPoll)
	handle("POST /polls/{id}/close", pollHandler.ClosePoll)
	handle("POST /polls/{id}/reset", pollHandler.ResetPoll)
	handle("GET /polls/{id}/summary", pollHandler.Summary)

	// Responses
	handle("GET /polls/{id}/responses", responseHandler.ListResponses)
	handle("POST /polls/{id}/responses", responseHandler.SubmitResponse)
	handle("POST /polls/{id}/responses/manual", responseHandler.ManualResponse)

	// Edge collaborators
	handle("POST /generate", generateHandler.Generate)
	handle("POST /auth/check", authHandler.Check)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("deck-live API v1"))
	})

	handler := middleware.CORS(deps.Config.CORSOrigins)(mux)
	if deps.Config.TrustProxyHeaders {
		handler = middleware.RealIP(handler)
	}
	return handler
}
