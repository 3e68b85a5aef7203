// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpenzell/deck-live/models"
)

// Frame types sent from server to client
const (
	FrameReady = "ready"
	FrameEvent = "event"
)

// Frame is one JSON message on the realtime websocket. The server sends a
// ready frame once the subscription is live, then one event frame per
// change. Clients send nothing.
type Frame struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Event     *models.Event `json:"event,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer frames may queue per connection before it is dropped
	sendBuffer = 64
)

// ErrSlowConsumer closes a connection whose send buffer filled up. The
// client reconnects and resyncs from a snapshot.
var ErrSlowConsumer = errors.New("realtime client too slow")

// ServeConn streams events for sessionID to conn until the peer goes away
// or ctx is cancelled. It owns conn and closes it.
func ServeConn(ctx context.Context, conn *websocket.Conn, hub *Hub, sessionID string) error {
	defer conn.Close()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	out := make(chan Frame, sendBuffer)
	sub := hub.Subscribe(sessionID, func(e models.Event) {
		select {
		case out <- Frame{Type: FrameEvent, Event: &e}:
		default:
			cancel(ErrSlowConsumer)
		}
	})
	defer sub.Unsubscribe()

	go readPump(conn, cancel)

	if err := writeFrame(conn, Frame{Type: FrameReady, SessionID: sessionID}); err != nil {
		return err
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cause := context.Cause(ctx)
			code := websocket.CloseNormalClosure
			if errors.Is(cause, ErrSlowConsumer) {
				code = websocket.CloseTryAgainLater
				slog.Warn("dropping slow realtime client", "session_id", sessionID)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
			if errors.Is(cause, context.Canceled) || errors.Is(cause, errPeerGone) {
				return nil
			}
			return cause

		case frame := <-out:
			if err := writeFrame(conn, frame); err != nil {
				return err
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

var errPeerGone = errors.New("realtime peer disconnected")

// readPump drains control frames so pongs are processed, and cancels the
// connection when the peer disconnects.
func readPump(conn *websocket.Conn, cancel context.CancelCauseFunc) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel(errPeerGone)
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
