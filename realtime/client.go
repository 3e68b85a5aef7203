// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Client keeps a realtime connection to one session alive. While
// disconnected it delivers nothing; callers keep their last known state.
type Client struct {
	url      string
	header   http.Header
	dialer   *websocket.Dialer
	onChange Handler
	resync   func(ctx context.Context) error
	backoff  func() *backoff.ExponentialBackOff

	connected atomic.Bool
	connects  atomic.Int64
}

type ClientOption func(*Client)

// WithResync sets a hook run after every successful (re)connect, once the
// server reports the subscription is live. It should refetch state by
// direct query.
func WithResync(fn func(ctx context.Context) error) ClientOption {
	return func(c *Client) { c.resync = fn }
}

// WithHeader sets headers sent on every dial.
func WithHeader(h http.Header) ClientOption {
	return func(c *Client) { c.header = h }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// WithBackoff bounds the reconnect delay.
func WithBackoff(initial, max time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = func() *backoff.ExponentialBackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = max
			return b
		}
	}
}

// NewClient creates a client for the websocket at url (ws:// or wss://).
func NewClient(url string, onChange Handler, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		dialer:   websocket.DefaultDialer,
		onChange: onChange,
	}
	WithBackoff(500*time.Millisecond, 30*time.Second)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connected reports whether the subscription is currently live.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Connects returns how many times the subscription became live.
func (c *Client) Connects() int64 {
	return c.connects.Load()
}

// Run connects and reconnects until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	b := c.backoff()
	for {
		err := c.runOnce(ctx, b)
		c.connected.Store(false)
		if ctx.Err() != nil {
			return nil
		}

		wait := b.NextBackOff()
		slog.Warn("realtime connection lost, retrying", "url", c.url, "error", err, "retry_in", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) runOnce(ctx context.Context, b *backoff.ExponentialBackOff) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to dial realtime: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}

		switch f.Type {
		case FrameReady:
			c.connected.Store(true)
			c.connects.Add(1)
			b.Reset()
			if c.resync != nil {
				if err := c.resync(ctx); err != nil {
					slog.Warn("realtime resync failed", "url", c.url, "error", err)
				}
			}
		case FrameEvent:
			if f.Event != nil && c.onChange != nil {
				c.onChange(*f.Event)
			}
		}
	}
}
