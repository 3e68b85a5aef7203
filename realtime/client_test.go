// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpenzell/deck-live/models"
)

// newTestServer serves hub over websockets. drop closes every live
// connection from the server side.
func newTestServer(t *testing.T, hub *Hub) (srv *httptest.Server, drop func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var (
		mu    sync.Mutex
		conns []*websocket.Conn
	)
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, conn)
		mu.Unlock()
		_ = ServeConn(r.Context(), conn, hub, r.URL.Query().Get("session"))
	}))
	t.Cleanup(srv.Close)

	drop = func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
		conns = nil
	}
	return srv, drop
}

func wsURL(srv *httptest.Server, sessionID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + sessionID
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClientReceivesEvents(t *testing.T) {
	hub := NewHub()
	srv, drop := newTestServer(t, hub)
	defer drop()

	state := NewState()
	var resyncs atomic.Int32
	client := NewClient(wsURL(srv, "s1"), func(e models.Event) {
		if _, err := state.Apply(e); err != nil {
			t.Errorf("Apply() error = %v", err)
		}
	}, WithResync(func(context.Context) error {
		resyncs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitFor(t, "subscription", func() bool {
		return client.Connected() && hub.Subscribers("s1") == 1 && resyncs.Load() == 1
	})

	p := models.Poll{ID: "p1", SessionID: "s1", SlideID: "slide-3", IsOpen: true, CreatedAt: t0, UpdatedAt: t0}
	if err := hub.Publish(ctx, mustEvent(t, models.TablePolls, models.ActionInsert, "s1", p)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "poll event", func() bool {
		_, ok := state.Poll("p1")
		return ok
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	waitFor(t, "server unsubscribe", func() bool { return hub.Subscribers("s1") == 0 })
}

func TestClientReconnectsAndResyncs(t *testing.T) {
	hub := NewHub()
	srv, drop := newTestServer(t, hub)
	defer drop()

	var resyncs atomic.Int32
	client := NewClient(wsURL(srv, "s1"), nil,
		WithBackoff(10*time.Millisecond, 50*time.Millisecond),
		WithResync(func(context.Context) error {
			resyncs.Add(1)
			return nil
		}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	waitFor(t, "first connect", func() bool { return client.Connects() == 1 })

	drop()

	waitFor(t, "reconnect and resync", func() bool {
		return client.Connects() >= 2 && resyncs.Load() >= 2
	})
}

func TestClientRetriesUnreachableServer(t *testing.T) {
	hub := NewHub()
	srv, _ := newTestServer(t, hub)
	url := wsURL(srv, "s1")
	srv.Close()

	client := NewClient(url, nil, WithBackoff(5*time.Millisecond, 10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if client.Connected() {
		t.Error("Connected() = true for unreachable server")
	}
}
