// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jpenzell/deck-live/models"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return raw
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestStateApplyIdempotent(t *testing.T) {
	s := NewState()
	p := models.Poll{ID: "p1", SessionID: "s1", SlideID: "slide-3", Type: models.PollSlider,
		Config: json.RawMessage(`{}`), IsOpen: true, CreatedAt: t0, UpdatedAt: t0}
	e := mustEvent(t, models.TablePolls, models.ActionInsert, "s1", p)

	changed, err := s.Apply(e)
	if err != nil || !changed {
		t.Fatalf("first Apply() = %v, %v; want true, nil", changed, err)
	}
	changed, err = s.Apply(e)
	if err != nil || changed {
		t.Errorf("duplicate Apply() = %v, %v; want false, nil", changed, err)
	}

	got, ok := s.PollForSlide("slide-3")
	if !ok || got.ID != "p1" || !got.IsOpen {
		t.Errorf("PollForSlide() = %+v, %v", got, ok)
	}
}

func TestStateLastWriteWins(t *testing.T) {
	s := NewState()
	older := models.Response{ID: "r1", PollID: "p1", ParticipantID: "u1",
		Value: json.RawMessage(`{"slider":10}`), CreatedAt: t0, UpdatedAt: t0}
	newer := older
	newer.Value = json.RawMessage(`{"slider":42}`)
	newer.UpdatedAt = t0.Add(time.Second)

	// delivered out of order
	if _, err := s.Apply(mustEvent(t, models.TableResponses, models.ActionUpdate, "s1", newer)); err != nil {
		t.Fatal(err)
	}
	changed, err := s.Apply(mustEvent(t, models.TableResponses, models.ActionInsert, "s1", older))
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("stale response replaced newer one")
	}

	list := s.Responses("p1")
	if len(list) != 1 || string(list[0].Value) != `{"slider":42}` {
		t.Errorf("Responses() = %+v", list)
	}
}

func TestStateClearKeepsLaterResponses(t *testing.T) {
	s := NewState()
	for i, pid := range []string{"u1", "u2"} {
		r := models.Response{ID: "r" + pid, PollID: "p1", ParticipantID: pid,
			Value: json.RawMessage(`1`), CreatedAt: t0.Add(time.Duration(i) * time.Second),
			UpdatedAt: t0.Add(time.Duration(i) * time.Second)}
		if _, err := s.Apply(mustEvent(t, models.TableResponses, models.ActionInsert, "s1", r)); err != nil {
			t.Fatal(err)
		}
	}

	reset := mustEvent(t, models.TableResponses, models.ActionDelete, "s1", models.ResponsesCleared{PollID: "p1"})
	reset.At = t0.Add(500 * time.Millisecond)
	changed, err := s.Apply(reset)
	if err != nil || !changed {
		t.Fatalf("Apply(reset) = %v, %v", changed, err)
	}

	list := s.Responses("p1")
	if len(list) != 1 || list[0].ParticipantID != "u2" {
		t.Errorf("Responses() after late reset = %+v, want only u2", list)
	}
}

func TestStateSessionCount(t *testing.T) {
	s := NewState()
	s.Replace(models.SessionState{Session: models.Session{ID: "s1", Code: "K7QX", CreatedAt: t0}})

	update := models.Session{ID: "s1", Code: "K7QX", ParticipantCount: 1, CreatedAt: t0}
	changed, err := s.Apply(mustEvent(t, models.TableSessions, models.ActionUpdate, "s1", update))
	if err != nil || !changed {
		t.Fatalf("Apply() = %v, %v", changed, err)
	}
	if s.Session().ParticipantCount != 1 {
		t.Errorf("ParticipantCount = %d, want 1", s.Session().ParticipantCount)
	}

	other := models.Session{ID: "s9", Code: "ZZZZ", ParticipantCount: 5}
	if changed, _ := s.Apply(mustEvent(t, models.TableSessions, models.ActionUpdate, "s9", other)); changed {
		t.Error("event for another session changed state")
	}
}

func TestStateReplace(t *testing.T) {
	s := NewState()
	stale := models.Poll{ID: "gone", SlideID: "slide-1"}
	s.Apply(mustEvent(t, models.TablePolls, models.ActionInsert, "s1", stale))

	s.Replace(models.SessionState{
		Session: models.Session{ID: "s1", Code: "K7QX"},
		Polls: []models.Poll{
			{ID: "b", SlideID: "slide-2", CreatedAt: t0.Add(time.Second)},
			{ID: "a", SlideID: "slide-1", CreatedAt: t0},
		},
		Responses: map[string][]models.Response{
			"a": {{ID: "r1", PollID: "a", ParticipantID: "u1"}},
		},
	})

	if _, ok := s.Poll("gone"); ok {
		t.Error("Replace kept stale poll")
	}
	polls := s.Polls()
	if len(polls) != 2 || polls[0].ID != "a" || polls[1].ID != "b" {
		t.Errorf("Polls() = %+v", polls)
	}
	if n := len(s.Responses("a")); n != 1 {
		t.Errorf("Responses(a) = %d, want 1", n)
	}
}

func TestStateUnknownTable(t *testing.T) {
	s := NewState()
	if _, err := s.Apply(models.Event{Table: "slides", Record: json.RawMessage(`{}`)}); err == nil {
		t.Error("Apply() with unknown table returned nil error")
	}
}
