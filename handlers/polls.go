// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jpenzell/deck-live/aggregate"
	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/role"
	"github.com/jpenzell/deck-live/sessions"
)

type PollHandler struct {
	dir    *sessions.Directory
	engine *polls.Engine
	cfg    cliparse.Config
}

func NewPollHandler(dir *sessions.Directory, engine *polls.Engine, cfg cliparse.Config) *PollHandler {
	return &PollHandler{dir: dir, engine: engine, cfg: cfg}
}

// ListPolls handles GET /sessions/{code}/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}

	list, err := h.engine.Polls(r.Context(), session.ID)
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	if list == nil {
		list = []models.Poll{}
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// CreatePoll handles POST /sessions/{code}/polls
// Requires X-Presenter-Key. Returns the existing poll when the slide has one.
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	h.slidePoll(w, r, role.OpCreate, h.engine.Create)
}

// TogglePoll handles POST /sessions/{code}/polls/toggle
// Requires X-Presenter-Key.
func (h *PollHandler) TogglePoll(w http.ResponseWriter, r *http.Request) {
	h.slidePoll(w, r, role.OpToggle, h.engine.Toggle)
}

type slideOp func(ctx context.Context, sessionID, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error)

func (h *PollHandler) slidePoll(w http.ResponseWriter, r *http.Request, op role.Op, apply slideOp) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	if !requireRole(w, r, h.cfg.PresenterKeySalt, session.ID, op) {
		return
	}

	var req models.CreatePollRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	p, err := apply(r.Context(), session.ID, req.SlideID, req.Type, req.Config)
	if err != nil {
		middleware.WriteError(w, err, "Failed to update poll")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// PollForSlide handles GET /sessions/{code}/slides/{slide}/poll
func (h *PollHandler) PollForSlide(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}

	p, err := h.engine.PollForSlide(r.Context(), session.ID, r.PathValue("slide"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Poll(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// OpenPoll handles POST /polls/{id}/open
func (h *PollHandler) OpenPoll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.gatedPoll(w, r, role.OpOpen)
	if !ok {
		return
	}
	p, err := h.engine.Open(r.Context(), p.ID)
	if err != nil {
		middleware.WriteError(w, err, "Failed to open poll")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// ClosePoll handles POST /polls/{id}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.gatedPoll(w, r, role.OpClose)
	if !ok {
		return
	}
	p, err := h.engine.Close(r.Context(), p.ID)
	if err != nil {
		middleware.WriteError(w, err, "Failed to close poll")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// ResetPoll handles POST /polls/{id}/reset
// Deletes every response; the poll and its openness are unchanged.
func (h *PollHandler) ResetPoll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.gatedPoll(w, r, role.OpReset)
	if !ok {
		return
	}
	p, n, err := h.engine.ClearResponses(r.Context(), p.ID)
	if err != nil {
		middleware.WriteError(w, err, "Failed to reset poll")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ClearResponsesResponse{Poll: p, Deleted: n})
}

// Summary handles GET /polls/{id}/summary?kind=numeric|choice|text&path=slider
func (h *PollHandler) Summary(w http.ResponseWriter, r *http.Request) {
	responses, err := h.engine.Responses(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}

	q := r.URL.Query()
	path := q.Get("path")
	switch q.Get("kind") {
	case "", "numeric":
		middleware.JSONResponse(w, http.StatusOK, aggregate.Numeric(responses, path))
	case "choice":
		middleware.JSONResponse(w, http.StatusOK, aggregate.Count(responses, path))
	case "text":
		middleware.JSONResponse(w, http.StatusOK, aggregate.Texts(responses, path))
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "kind must be numeric, choice or text")
	}
}

// gatedPoll loads the poll named in the path and checks the caller may
// apply op to it.
func (h *PollHandler) gatedPoll(w http.ResponseWriter, r *http.Request, op role.Op) (models.Poll, bool) {
	p, err := h.engine.Poll(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return models.Poll{}, false
	}
	if !requireRole(w, r, h.cfg.PresenterKeySalt, p.SessionID, op) {
		return models.Poll{}, false
	}
	return p, true
}
