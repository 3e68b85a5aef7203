// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/models"
)

type AuthHandler struct {
	cfg cliparse.Config
	now func() time.Time
}

func NewAuthHandler(cfg cliparse.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg, now: time.Now}
}

// Check handles POST /auth/check
// Accepts {password} or a cached {token}. With no password configured the
// deck is open and every check is valid.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req models.AuthCheckRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if h.cfg.DeckPassword == "" {
		middleware.JSONResponse(w, http.StatusOK, models.AuthCheckResponse{Valid: true})
		return
	}

	if req.Token != "" {
		err := auth.VerifyDeckToken(req.Token, h.cfg.DeckTokenSecret)
		if err != nil && !errors.Is(err, auth.ErrInvalidDeckToken) {
			slog.Error("failed to verify deck token", "error", err)
		}
		middleware.JSONResponse(w, http.StatusOK, models.AuthCheckResponse{Valid: err == nil})
		return
	}

	if !auth.CheckPassword(req.Password, h.cfg.DeckPassword) {
		slog.Info("deck password rejected", "remote", middleware.GetClientIP(r))
		middleware.JSONResponse(w, http.StatusOK, models.AuthCheckResponse{Valid: false})
		return
	}

	token, err := auth.IssueDeckToken(h.cfg.DeckTokenSecret, h.now())
	if err != nil {
		slog.Error("failed to issue deck token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.AuthCheckResponse{Valid: true, Token: token})
}
