// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/sessions"
)

// QR code size bounds in pixels
const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

type SessionHandler struct {
	dir    *sessions.Directory
	engine *polls.Engine
	cfg    cliparse.Config
}

func NewSessionHandler(dir *sessions.Directory, engine *polls.Engine, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{dir: dir, engine: engine, cfg: cfg}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Create(r.Context())
	if errors.Is(err, sessions.ErrCodeSpaceExhausted) {
		slog.Error("join code space exhausted", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "No join code available, try again")
		return
	}
	if err != nil {
		middleware.WriteError(w, err, "Failed to create session")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		Session:      session,
		PresenterKey: auth.GeneratePresenterKey(session.ID, h.cfg.PresenterKeySalt),
		JoinURL:      JoinURL(h.cfg.PublicURL, session.Code),
	})
}

// GetSession handles GET /sessions/{code}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, session)
}

// JoinSession handles POST /sessions/{code}/join
func (h *SessionHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req models.JoinSessionRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.dir.Join(r.Context(), r.PathValue("code"), req.ParticipantID)
	if err != nil {
		middleware.WriteError(w, err, "Failed to join session")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, session)
}

// LeaveSession handles POST /sessions/{code}/leave
func (h *SessionHandler) LeaveSession(w http.ResponseWriter, r *http.Request) {
	var req models.JoinSessionRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.dir.Leave(r.Context(), r.PathValue("code"), req.ParticipantID)
	if err != nil {
		middleware.WriteError(w, err, "Failed to leave session")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, session)
}

// ParticipantCount handles GET /sessions/{code}/participants/count
func (h *SessionHandler) ParticipantCount(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ParticipantCountResponse{
		ParticipantCount: session.ParticipantCount,
	})
}

// GetState handles GET /sessions/{code}/state
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}

	state, err := Snapshot(r.Context(), h.engine, session)
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, state)
}

// QRCode handles GET /sessions/{code}/qr
// Returns a PNG of the join URL. Optional ?size= in pixels.
func (h *SessionHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			middleware.ErrorResponse(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(JoinURL(h.cfg.PublicURL, session.Code), qrcode.Medium, size)
	if err != nil {
		slog.Error("failed to encode QR code", "error", err, "code", session.Code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Snapshot assembles everything a client needs to rebuild its view of
// session from scratch.
func Snapshot(ctx context.Context, engine *polls.Engine, session models.Session) (models.SessionState, error) {
	list, err := engine.Polls(ctx, session.ID)
	if err != nil {
		return models.SessionState{}, err
	}

	state := models.SessionState{
		Session:   session,
		Polls:     list,
		Responses: make(map[string][]models.Response, len(list)),
	}
	for _, p := range list {
		responses, err := engine.Responses(ctx, p.ID)
		if err != nil {
			return models.SessionState{}, err
		}
		state.Responses[p.ID] = responses
	}
	return state, nil
}
