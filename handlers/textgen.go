// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jpenzell/deck-live/metrics"
	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/textgen"
)

type GenerateHandler struct {
	gen     textgen.Generator
	limiter textgen.Limiter
}

// NewGenerateHandler takes a limiter built once at start-up so every
// request shares the same buckets.
func NewGenerateHandler(gen textgen.Generator, limiter textgen.Limiter) *GenerateHandler {
	return &GenerateHandler{gen: gen, limiter: limiter}
}

// Generate handles POST /generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		generateError(w, http.StatusBadRequest, models.CodeInvalidInput, "Invalid JSON")
		return
	}
	if msg, ok := middleware.ValidationMessage(req.Validate()); !ok {
		generateError(w, http.StatusBadRequest, models.CodeInvalidInput, msg)
		return
	}

	client := middleware.GetClientIP(r)
	allowed, err := h.limiter.Allow(r.Context(), client)
	if err != nil {
		// Fail open when the limiter store is down
		slog.Warn("rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		metrics.RecordGenerate("rate_limited", 0)
		slog.Info("generate rate limited", "client", client)
		generateError(w, http.StatusTooManyRequests, models.CodeRateLimited, "Too many requests, wait a moment and try again")
		return
	}

	start := time.Now()
	res, err := h.gen.Generate(r.Context(), textgen.Request{
		Prompt:  req.Prompt,
		Context: req.Context,
		Model:   req.Model,
	})
	if err != nil {
		metrics.RecordGenerate("error", time.Since(start))
		slog.Error("text generation failed", "error", err)
		generateError(w, http.StatusBadGateway, models.CodeInternal, "Text generation failed")
		return
	}
	metrics.RecordGenerate("success", time.Since(start))

	middleware.JSONResponse(w, http.StatusOK, models.GenerateResponse{
		Response: res.Response,
		Model:    res.Model,
		Success:  true,
	})
}

func generateError(w http.ResponseWriter, status int, code, message string) {
	middleware.JSONResponse(w, status, models.GenerateResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}
