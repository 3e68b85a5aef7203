// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/realtime"
	"github.com/jpenzell/deck-live/role"
)

// ErrSoloLive is returned by Live for solo decks, which have no feed.
var ErrSoloLive = errors.New("solo decks have no live feed")

// Live mirrors the deck's session. Events from the websocket are applied
// to a realtime.State; after every (re)connect the state is replaced from
// a direct query, so missed events never leave it stale.
type Live struct {
	api      *API
	code     string
	state    *realtime.State
	client   *realtime.Client
	onChange func(*realtime.State)
}

// Live prepares the feed. onChange, which may be nil, runs after every
// change to the state, on the feed goroutine.
func (d *Deck) Live(onChange func(*realtime.State), opts ...realtime.ClientOption) (*Live, error) {
	if d.role == role.Solo {
		return nil, ErrSoloLive
	}

	l := &Live{
		api:      d.api,
		code:     d.session.Code,
		state:    realtime.NewState(),
		onChange: onChange,
	}
	opts = append(opts, realtime.WithResync(l.resync))
	l.client = realtime.NewClient(d.api.RealtimeURL(l.code), l.apply, opts...)
	return l, nil
}

// Run keeps the feed connected until ctx is cancelled.
func (l *Live) Run(ctx context.Context) error {
	return l.client.Run(ctx)
}

func (l *Live) State() *realtime.State { return l.state }

func (l *Live) Connected() bool { return l.client.Connected() }

func (l *Live) apply(e models.Event) {
	changed, err := l.state.Apply(e)
	if err != nil {
		slog.Warn("dropping undecodable change event", "table", e.Table, "action", e.Action, "error", err)
		return
	}
	if changed && l.onChange != nil {
		l.onChange(l.state)
	}
}

func (l *Live) resync(ctx context.Context) error {
	snapshot, err := l.api.State(ctx, l.code)
	if err != nil {
		return err
	}
	l.state.Replace(snapshot)
	if l.onChange != nil {
		l.onChange(l.state)
	}
	return nil
}
