// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/realtime"
	"github.com/jpenzell/deck-live/sessions"
	"github.com/jpenzell/deck-live/store"
	"github.com/jpenzell/deck-live/testutil"
)

// fixture wires every handler over one test database and hub
type fixture struct {
	cfg       cliparse.Config
	store     store.Store
	hub       *realtime.Hub
	dir       *sessions.Directory
	engine    *polls.Engine
	sessions  *SessionHandler
	polls     *PollHandler
	responses *ResponseHandler
}

func newFixture(t *testing.T, opts ...sessions.Option) *fixture {
	t.Helper()

	cfg := testutil.GetTestConfig()
	s := testutil.SetupTestStore(t)
	hub := realtime.NewHub()
	dir := sessions.NewDirectory(s, hub, opts...)
	engine := polls.NewEngine(s, hub)

	return &fixture{
		cfg:       cfg,
		store:     s,
		hub:       hub,
		dir:       dir,
		engine:    engine,
		sessions:  NewSessionHandler(dir, engine, cfg),
		polls:     NewPollHandler(dir, engine, cfg),
		responses: NewResponseHandler(engine, cfg),
	}
}

// session stores a session with code K7QX
func (f *fixture) session(t *testing.T) models.Session {
	t.Helper()
	return testutil.CreateTestSession(t, f.store, "K7QX")
}

func (f *fixture) presenter(session models.Session) map[string]string {
	return testutil.PresenterHeaders(f.cfg, session.ID)
}

// toggle flips the poll on slide via the handler and returns it
func (f *fixture) toggle(t *testing.T, session models.Session, slide string) models.Poll {
	t.Helper()

	req := testutil.MakeRequest("POST", "/sessions/"+session.Code+"/polls/toggle", models.CreatePollRequest{
		SlideID: slide,
		Type:    models.PollSlider,
	}, f.presenter(session))
	req.SetPathValue("code", session.Code)
	w := httptest.NewRecorder()
	f.polls.TogglePoll(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Toggle failed: %d - %s", w.Code, w.Body.String())
	}
	var p models.Poll
	testutil.AssertJSON(t, w, &p)
	return p
}

func assertCode(t *testing.T, w *httptest.ResponseRecorder, code string) {
	t.Helper()

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != code {
		t.Errorf("Expected error code %q, got %q (%s)", code, resp.Code, resp.Message)
	}
}
