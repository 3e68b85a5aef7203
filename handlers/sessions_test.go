// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/sessions"
	"github.com/jpenzell/deck-live/testutil"
)

func TestCreateSession(t *testing.T) {
	f := newFixture(t, sessions.WithCodeGenerator(func() (string, error) { return "K7QX", nil }))

	req := testutil.MakeRequest("POST", "/sessions", nil, nil)
	w := httptest.NewRecorder()
	f.sessions.CreateSession(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateSessionResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Session.Code != "K7QX" {
		t.Errorf("Expected code K7QX, got %q", resp.Session.Code)
	}
	if resp.Session.ParticipantCount != 0 {
		t.Errorf("Expected 0 participants, got %d", resp.Session.ParticipantCount)
	}
	if err := auth.ValidatePresenterKey(resp.Session.ID, resp.PresenterKey, f.cfg.PresenterKeySalt); err != nil {
		t.Errorf("Presenter key does not validate: %v", err)
	}
	if resp.JoinURL != "https://deck.example.com?join=K7QX" {
		t.Errorf("Unexpected join URL %q", resp.JoinURL)
	}
}

func TestCreateSessionExhausted(t *testing.T) {
	f := newFixture(t,
		sessions.WithCodeGenerator(func() (string, error) { return "K7QX", nil }),
		sessions.WithMaxAttempts(3),
	)
	f.session(t)

	w := httptest.NewRecorder()
	f.sessions.CreateSession(w, testutil.MakeRequest("POST", "/sessions", nil, nil))

	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}

func TestGetSession(t *testing.T) {
	f := newFixture(t)
	session := f.session(t)

	tests := []struct {
		name   string
		code   string
		status int
	}{
		{"exact code", "K7QX", http.StatusOK},
		{"lowercase code", "k7qx", http.StatusOK},
		{"padded code", " K7QX ", http.StatusOK},
		{"unknown code", "ZZZZ", http.StatusNotFound},
		{"malformed code", "K7-X", http.StatusBadRequest},
		{"short code", "K7", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/sessions/x", nil, nil)
			req.SetPathValue("code", tt.code)
			w := httptest.NewRecorder()
			f.sessions.GetSession(w, req)

			testutil.AssertStatus(t, w, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			var got models.Session
			testutil.AssertJSON(t, w, &got)
			if got.ID != session.ID {
				t.Errorf("Expected session %s, got %s", session.ID, got.ID)
			}
		})
	}
}

func TestJoinSession(t *testing.T) {
	f := newFixture(t)
	session := f.session(t)

	join := func(participant string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/sessions/k7qx/join", models.JoinSessionRequest{
			ParticipantID: participant,
		}, nil)
		req.SetPathValue("code", "k7qx")
		w := httptest.NewRecorder()
		f.sessions.JoinSession(w, req)
		return w
	}

	alice := auth.GenerateParticipantID()
	bob := auth.GenerateParticipantID()

	for i, tc := range []struct {
		participant string
		count       int
	}{
		{alice, 1},
		{alice, 1},
		{bob, 2},
	} {
		w := join(tc.participant)
		testutil.AssertStatus(t, w, http.StatusOK)

		var got models.Session
		testutil.AssertJSON(t, w, &got)
		if got.ParticipantCount != tc.count {
			t.Errorf("Join %d: expected count %d, got %d", i, tc.count, got.ParticipantCount)
		}
	}

	n, err := f.dir.ParticipantCount(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ParticipantCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 stored participants, got %d", n)
	}
}

func TestJoinSessionErrors(t *testing.T) {
	f := newFixture(t)
	f.session(t)

	tests := []struct {
		name        string
		code        string
		participant string
		status      int
		errCode     string
	}{
		{"unknown code", "ZZZZ", "p1", http.StatusNotFound, models.CodeNotFound},
		{"malformed code", "K7Q!", "p1", http.StatusBadRequest, models.CodeInvalidCode},
		{"blank participant", "K7QX", "  ", http.StatusBadRequest, models.CodeInvalidInput},
		{"solo identity", "K7QX", models.SoloIDPrefix + "abc", http.StatusBadRequest, models.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/sessions/x/join", models.JoinSessionRequest{
				ParticipantID: tt.participant,
			}, nil)
			req.SetPathValue("code", tt.code)
			w := httptest.NewRecorder()
			f.sessions.JoinSession(w, req)

			testutil.AssertStatus(t, w, tt.status)
			assertCode(t, w, tt.errCode)
		})
	}
}

func TestJoinSessionInvalidJSON(t *testing.T) {
	f := newFixture(t)
	f.session(t)

	req := httptest.NewRequest("POST", "/sessions/K7QX/join", bytes.NewBufferString("{not json"))
	req.SetPathValue("code", "K7QX")
	w := httptest.NewRecorder()
	f.sessions.JoinSession(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestLeaveSession(t *testing.T) {
	f := newFixture(t)
	session := f.session(t)
	ctx := context.Background()

	if _, err := f.dir.Join(ctx, session.Code, "p1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := f.dir.Join(ctx, session.Code, "p2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := testutil.MakeRequest("POST", "/sessions/K7QX/leave", models.JoinSessionRequest{ParticipantID: "p1"}, nil)
		req.SetPathValue("code", "K7QX")
		w := httptest.NewRecorder()
		f.sessions.LeaveSession(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		var got models.Session
		testutil.AssertJSON(t, w, &got)
		if got.ParticipantCount != 1 {
			t.Errorf("Leave %d: expected count 1, got %d", i, got.ParticipantCount)
		}
	}
}

func TestParticipantCount(t *testing.T) {
	f := newFixture(t)
	session := f.session(t)

	if _, err := f.dir.Join(context.Background(), session.Code, "p1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	req := testutil.MakeRequest("GET", "/sessions/K7QX/participants/count", nil, nil)
	req.SetPathValue("code", "K7QX")
	w := httptest.NewRecorder()
	f.sessions.ParticipantCount(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ParticipantCountResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.ParticipantCount != 1 {
		t.Errorf("Expected 1, got %d", resp.ParticipantCount)
	}
}

func TestGetState(t *testing.T) {
	f := newFixture(t)
	session := f.session(t)

	p := f.toggle(t, session, "slide-1")
	f.toggle(t, session, "slide-2")
	if _, err := f.engine.Submit(context.Background(), p.ID, "p1", []byte(`{"slider":42}`)); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := testutil.MakeRequest("GET", "/sessions/K7QX/state", nil, nil)
	req.SetPathValue("code", "K7QX")
	w := httptest.NewRecorder()
	f.sessions.GetState(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var state models.SessionState
	testutil.AssertJSON(t, w, &state)

	if state.Session.ID != session.ID {
		t.Errorf("Expected session %s, got %s", session.ID, state.Session.ID)
	}
	if len(state.Polls) != 2 {
		t.Fatalf("Expected 2 polls, got %d", len(state.Polls))
	}
	if got := state.Responses[p.ID]; len(got) != 1 || got[0].ParticipantID != "p1" {
		t.Errorf("Unexpected responses for %s: %+v", p.ID, got)
	}
}

func TestQRCode(t *testing.T) {
	f := newFixture(t)
	f.session(t)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"default size", "", http.StatusOK},
		{"custom size", "?size=128", http.StatusOK},
		{"too small", "?size=8", http.StatusBadRequest},
		{"not a number", "?size=big", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/sessions/K7QX/qr"+tt.query, nil, nil)
			req.SetPathValue("code", "K7QX")
			w := httptest.NewRecorder()
			f.sessions.QRCode(w, req)

			testutil.AssertStatus(t, w, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Expected image/png, got %q", ct)
			}
			if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
				t.Error("Body is not a PNG")
			}
		})
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		publicURL string
		want      string
	}{
		{"https://deck.example.com", "https://deck.example.com?join=K7QX"},
		{"https://deck.example.com/", "https://deck.example.com?join=K7QX"},
		{"https://example.com/talk/", "https://example.com/talk?join=K7QX"},
		{"https://example.com/talk?theme=dark", "https://example.com/talk?join=K7QX&theme=dark"},
	}

	for _, tt := range tests {
		t.Run(tt.publicURL, func(t *testing.T) {
			if got := JoinURL(tt.publicURL, "K7QX"); got != tt.want {
				t.Errorf("JoinURL(%q) = %q, want %q", tt.publicURL, got, tt.want)
			}
		})
	}
}
