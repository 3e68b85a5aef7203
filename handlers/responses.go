// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/role"
)

type ResponseHandler struct {
	engine *polls.Engine
	cfg    cliparse.Config
}

func NewResponseHandler(engine *polls.Engine, cfg cliparse.Config) *ResponseHandler {
	return &ResponseHandler{engine: engine, cfg: cfg}
}

// ListResponses handles GET /polls/{id}/responses
func (h *ResponseHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Responses(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	if list == nil {
		list = []models.Response{}
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// SubmitResponse handles POST /polls/{id}/responses
// Upserts by participant; 409 poll_closed when the poll is not open.
func (h *ResponseHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitResponseRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	pollID := r.PathValue("id")
	resp, err := h.engine.Submit(r.Context(), pollID, req.ParticipantID, req.Value)
	if errors.Is(err, models.ErrPollClosed) {
		slog.Info("response rejected, poll closed", "poll_id", pollID)
	}
	if err != nil {
		middleware.WriteError(w, err, "Failed to submit response")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ManualResponse handles POST /polls/{id}/responses/manual
// Requires X-Presenter-Key.
func (h *ResponseHandler) ManualResponse(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Poll(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	if !requireRole(w, r, h.cfg.PresenterKeySalt, p.SessionID, role.OpInject) {
		return
	}

	var req models.ManualResponseRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.engine.SubmitManual(r.Context(), p.ID, req.Value)
	if err != nil {
		middleware.WriteError(w, err, "Failed to add response")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, resp)
}
