// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jpenzell/deck-live/metrics"
	"github.com/jpenzell/deck-live/models"
)

// Publisher receives every mutation made by the session directory and the
// poll engine.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Nop discards events. Solo mode uses it.
type Nop struct{}

func (Nop) Publish(context.Context, models.Event) error { return nil }

// Handler is invoked once per delivered event.
type Handler func(models.Event)

// Hub fans events out to in-process subscribers keyed by session id.
// Delivery is synchronous: Publish returns after every subscriber's
// handler has run.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription is a live registration returned by Subscribe.
type Subscription struct {
	hub       *Hub
	sessionID string
	onChange  Handler

	mu     sync.Mutex
	closed bool
}

// Subscribe registers onChange for events of sessionID.
func (h *Hub) Subscribe(sessionID string, onChange Handler) *Subscription {
	sub := &Subscription{hub: h, sessionID: sessionID, onChange: onChange}

	h.mu.Lock()
	set := h.subs[sessionID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	metrics.SubscriberAdded()
	return sub
}

// Unsubscribe releases the subscription. Once it returns, onChange is
// not running and will not be called again. It must not be called from
// inside onChange. Calling it twice is a no-op.
func (s *Subscription) Unsubscribe() {
	s.hub.mu.Lock()
	set := s.hub.subs[s.sessionID]
	_, registered := set[s]
	delete(set, s)
	if len(set) == 0 {
		delete(s.hub.subs, s.sessionID)
	}
	s.hub.mu.Unlock()

	// Waits for an in-flight delivery to finish.
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if registered {
		metrics.SubscriberRemoved()
	}
}

// SessionID returns the session this subscription listens to.
func (s *Subscription) SessionID() string {
	return s.sessionID
}

func (s *Subscription) deliver(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onChange(e)
}

// Publish delivers e to every subscriber of e.SessionID.
func (h *Hub) Publish(ctx context.Context, e models.Event) error {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs[e.SessionID]))
	for sub := range h.subs[e.SessionID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	metrics.RecordEvent(e)
	for _, sub := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		sub.deliver(e)
	}
	return nil
}

// Subscribers returns the number of live subscriptions for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Emit builds an event and publishes it. Publish failures are logged and
// swallowed: the mutation already happened and clients can resync.
func Emit(ctx context.Context, pub Publisher, table models.Table, action models.Action, sessionID string, record any, at time.Time) {
	e, err := models.NewEvent(table, action, sessionID, record)
	if err != nil {
		slog.Warn("failed to encode change event", "table", table, "session_id", sessionID, "error", err)
		return
	}
	if !at.IsZero() {
		e.At = at
	}
	if err := pub.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish change event", "table", table, "action", action, "session_id", sessionID, "error", err)
	}
}
