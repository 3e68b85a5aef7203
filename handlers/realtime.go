// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/realtime"
	"github.com/jpenzell/deck-live/sessions"
)

type RealtimeHandler struct {
	dir      *sessions.Directory
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(dir *sessions.Directory, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		dir: dir,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Decks are served from arbitrary origins; access is scoped by join code.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe handles GET /sessions/{code}/realtime
// Upgrades to a websocket that streams change events for the session.
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	session, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		middleware.WriteError(w, err, "Database error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		slog.Warn("websocket upgrade failed", "error", err, "session_id", session.ID)
		return
	}

	slog.Info("realtime client connected", "session_id", session.ID, "remote", middleware.GetClientIP(r))
	if err := realtime.ServeConn(r.Context(), conn, h.hub, session.ID); err != nil {
		slog.Info("realtime client disconnected", "session_id", session.ID, "error", err)
		return
	}
	slog.Info("realtime client disconnected", "session_id", session.ID)
}
