// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jpenzell/deck-live/db"
	"github.com/jpenzell/deck-live/models"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.Open(db.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		conn.Close()
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSQLStore(conn, db.SQLite)
}

// eachStore runs fn against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedSession(t *testing.T, s Store, id, code string) models.Session {
	t.Helper()
	session := models.Session{ID: id, Code: code, CreatedAt: baseTime}
	if err := s.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return session
}

func seedPoll(t *testing.T, s Store, id, sessionID, slideID string, open bool) models.Poll {
	t.Helper()
	p, created, err := s.CreatePollIfAbsent(context.Background(), models.Poll{
		ID:        id,
		SessionID: sessionID,
		SlideID:   slideID,
		Type:      models.PollSlider,
		Config:    json.RawMessage(`{"min":0,"max":100}`),
		IsOpen:    open,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	})
	if err != nil {
		t.Fatalf("CreatePollIfAbsent() error = %v", err)
	}
	if !created {
		t.Fatalf("CreatePollIfAbsent() created = false for fresh slide %s", slideID)
	}
	return p
}

func response(id, pollID, participantID, value string, at time.Time) models.Response {
	return models.Response{
		ID:            id,
		PollID:        pollID,
		ParticipantID: participantID,
		Value:         json.RawMessage(value),
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func TestSessions(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedSession(t, s, "s1", "K7QX")

		t.Run("duplicate code conflicts", func(t *testing.T) {
			err := s.CreateSession(ctx, models.Session{ID: "s2", Code: "K7QX", CreatedAt: baseTime})
			if !errors.Is(err, models.ErrConflict) {
				t.Errorf("CreateSession() error = %v, want ErrConflict", err)
			}
		})

		t.Run("lookup by code and id", func(t *testing.T) {
			byCode, err := s.SessionByCode(ctx, "K7QX")
			if err != nil {
				t.Fatalf("SessionByCode() error = %v", err)
			}
			byID, err := s.SessionByID(ctx, "s1")
			if err != nil {
				t.Fatalf("SessionByID() error = %v", err)
			}
			if byCode.ID != "s1" || byID.Code != "K7QX" {
				t.Errorf("lookups disagree: %+v vs %+v", byCode, byID)
			}
			if !byCode.CreatedAt.Equal(baseTime) {
				t.Errorf("CreatedAt = %v, want %v", byCode.CreatedAt, baseTime)
			}
		})

		t.Run("unknown code", func(t *testing.T) {
			if _, err := s.SessionByCode(ctx, "ZZZZ"); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("SessionByCode() error = %v, want ErrNotFound", err)
			}
		})

		t.Run("participants are distinct", func(t *testing.T) {
			for _, pid := range []string{"p1", "p1", "p2"} {
				if _, err := s.AddParticipant(ctx, "s1", pid, baseTime); err != nil {
					t.Fatalf("AddParticipant() error = %v", err)
				}
			}
			n, err := s.CountParticipants(ctx, "s1")
			if err != nil {
				t.Fatalf("CountParticipants() error = %v", err)
			}
			if n != 2 {
				t.Errorf("CountParticipants() = %d, want 2", n)
			}

			added, err := s.AddParticipant(ctx, "s1", "p2", baseTime)
			if err != nil || added {
				t.Errorf("AddParticipant() repeat = %v, %v; want false, nil", added, err)
			}

			session, _ := s.SessionByCode(ctx, "K7QX")
			if session.ParticipantCount != 2 {
				t.Errorf("ParticipantCount = %d, want 2", session.ParticipantCount)
			}
		})

		t.Run("remove participant", func(t *testing.T) {
			removed, err := s.RemoveParticipant(ctx, "s1", "p1")
			if err != nil || !removed {
				t.Fatalf("RemoveParticipant() = %v, %v", removed, err)
			}
			removed, err = s.RemoveParticipant(ctx, "s1", "p1")
			if err != nil || removed {
				t.Errorf("RemoveParticipant() repeat = %v, %v; want false, nil", removed, err)
			}
			if n, _ := s.CountParticipants(ctx, "s1"); n != 1 {
				t.Errorf("CountParticipants() = %d, want 1", n)
			}
		})
	})
}

func TestPolls(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedSession(t, s, "s1", "K7QX")
		first := seedPoll(t, s, "poll1", "s1", "slide-3", false)

		t.Run("create if absent returns existing", func(t *testing.T) {
			again, created, err := s.CreatePollIfAbsent(ctx, models.Poll{
				ID: "poll2", SessionID: "s1", SlideID: "slide-3", Type: models.PollText,
				CreatedAt: baseTime, UpdatedAt: baseTime,
			})
			if err != nil {
				t.Fatalf("CreatePollIfAbsent() error = %v", err)
			}
			if created {
				t.Error("CreatePollIfAbsent() created = true for existing slide")
			}
			if again.ID != first.ID || again.Type != models.PollSlider {
				t.Errorf("CreatePollIfAbsent() = %+v, want existing %s", again, first.ID)
			}
		})

		t.Run("config round trips", func(t *testing.T) {
			p, err := s.Poll(ctx, "poll1")
			if err != nil {
				t.Fatalf("Poll() error = %v", err)
			}
			if string(p.Config) != `{"min":0,"max":100}` {
				t.Errorf("Config = %s", p.Config)
			}
		})

		t.Run("solo scope is separate", func(t *testing.T) {
			solo := seedPoll(t, s, "solo1", "", "slide-3", true)
			got, err := s.PollForSlide(ctx, "", "slide-3")
			if err != nil {
				t.Fatalf("PollForSlide() error = %v", err)
			}
			if got.ID != solo.ID {
				t.Errorf("PollForSlide(solo) = %s, want %s", got.ID, solo.ID)
			}
		})

		t.Run("missing slide", func(t *testing.T) {
			if _, err := s.PollForSlide(ctx, "s1", "slide-9"); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("PollForSlide() error = %v, want ErrNotFound", err)
			}
		})

		t.Run("set open is idempotent", func(t *testing.T) {
			later := baseTime.Add(time.Minute)
			p, changed, err := s.SetPollOpen(ctx, "poll1", true, later)
			if err != nil || !changed || !p.IsOpen {
				t.Fatalf("SetPollOpen(true) = %+v, %v, %v", p, changed, err)
			}
			if !p.UpdatedAt.Equal(later) {
				t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, later)
			}
			_, changed, err = s.SetPollOpen(ctx, "poll1", true, later.Add(time.Minute))
			if err != nil || changed {
				t.Errorf("SetPollOpen(true) repeat changed = %v, err = %v", changed, err)
			}
			if _, _, err := s.SetPollOpen(ctx, "nope", true, later); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("SetPollOpen(missing) error = %v, want ErrNotFound", err)
			}
		})

		t.Run("list in creation order", func(t *testing.T) {
			seedPoll(t, s, "poll3", "s1", "slide-4", false)
			polls, err := s.Polls(ctx, "s1")
			if err != nil {
				t.Fatalf("Polls() error = %v", err)
			}
			if len(polls) != 2 || polls[0].ID != "poll1" || polls[1].ID != "poll3" {
				t.Errorf("Polls() = %+v", polls)
			}
		})
	})
}

func TestResponses(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedSession(t, s, "s1", "K7QX")
		seedPoll(t, s, "open", "s1", "slide-1", true)
		seedPoll(t, s, "closed", "s1", "slide-2", false)

		t.Run("upsert keeps one row", func(t *testing.T) {
			first, inserted, err := s.UpsertResponse(ctx, response("r1", "open", "p1", `{"slider":10}`, baseTime))
			if err != nil || !inserted {
				t.Fatalf("UpsertResponse() = %v, %v", inserted, err)
			}
			second, inserted, err := s.UpsertResponse(ctx, response("r2", "open", "p1", `{"slider":42}`, baseTime.Add(time.Second)))
			if err != nil {
				t.Fatalf("UpsertResponse() error = %v", err)
			}
			if inserted {
				t.Error("UpsertResponse() inserted = true on resubmission")
			}
			if second.ID != first.ID {
				t.Errorf("resubmission ID = %s, want %s", second.ID, first.ID)
			}
			if !second.CreatedAt.Equal(baseTime) {
				t.Errorf("CreatedAt = %v, want original %v", second.CreatedAt, baseTime)
			}

			list, err := s.Responses(ctx, "open")
			if err != nil {
				t.Fatalf("Responses() error = %v", err)
			}
			if len(list) != 1 || string(list[0].Value) != `{"slider":42}` {
				t.Errorf("Responses() = %+v", list)
			}
		})

		t.Run("closed poll writes nothing", func(t *testing.T) {
			_, _, err := s.UpsertResponse(ctx, response("r3", "closed", "p1", `{"slider":1}`, baseTime))
			if !errors.Is(err, models.ErrPollClosed) {
				t.Fatalf("UpsertResponse() error = %v, want ErrPollClosed", err)
			}
			list, _ := s.Responses(ctx, "closed")
			if len(list) != 0 {
				t.Errorf("closed poll has %d responses", len(list))
			}
		})

		t.Run("unknown poll", func(t *testing.T) {
			_, _, err := s.UpsertResponse(ctx, response("r4", "missing", "p1", `1`, baseTime))
			if !errors.Is(err, models.ErrNotFound) {
				t.Errorf("UpsertResponse() error = %v, want ErrNotFound", err)
			}
			_, err = s.InsertResponse(ctx, response("r5", "missing", "manual_x", `1`, baseTime))
			if !errors.Is(err, models.ErrNotFound) {
				t.Errorf("InsertResponse() error = %v, want ErrNotFound", err)
			}
		})

		t.Run("manual insert ignores open gate", func(t *testing.T) {
			r := response("r6", "closed", "manual_a", `{"slider":7}`, baseTime)
			r.IsManual = true
			stored, err := s.InsertResponse(ctx, r)
			if err != nil {
				t.Fatalf("InsertResponse() error = %v", err)
			}
			if !stored.IsManual {
				t.Error("IsManual = false")
			}
		})

		t.Run("insertion order", func(t *testing.T) {
			for i, pid := range []string{"p2", "p3", "p4"} {
				at := baseTime.Add(time.Duration(i+2) * time.Second)
				if _, _, err := s.UpsertResponse(ctx, response("o"+pid, "open", pid, `1`, at)); err != nil {
					t.Fatalf("UpsertResponse() error = %v", err)
				}
			}
			list, _ := s.Responses(ctx, "open")
			want := []string{"p1", "p2", "p3", "p4"}
			if len(list) != len(want) {
				t.Fatalf("Responses() len = %d, want %d", len(list), len(want))
			}
			for i, r := range list {
				if r.ParticipantID != want[i] {
					t.Errorf("Responses()[%d] = %s, want %s", i, r.ParticipantID, want[i])
				}
			}
		})

		t.Run("delete", func(t *testing.T) {
			n, err := s.DeleteResponses(ctx, "open")
			if err != nil {
				t.Fatalf("DeleteResponses() error = %v", err)
			}
			if n != 4 {
				t.Errorf("DeleteResponses() = %d, want 4", n)
			}
			list, _ := s.Responses(ctx, "open")
			if len(list) != 0 {
				t.Errorf("Responses() after delete = %d rows", len(list))
			}
			p, err := s.Poll(ctx, "open")
			if err != nil || !p.IsOpen {
				t.Errorf("poll after delete = %+v, %v", p, err)
			}
		})
	})
}

func TestInsertionOrderWithinOneMillisecond(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedSession(t, s, "s1", "K7QX")

		// Ids sort opposite to insertion so ordering by id would fail.
		var pollIDs []string
		for i := 0; i < 4; i++ {
			id := fmt.Sprintf("poll-%d", 9-i)
			seedPoll(t, s, id, "s1", fmt.Sprintf("slide-%d", i), true)
			pollIDs = append(pollIDs, id)
		}
		polls, err := s.Polls(ctx, "s1")
		if err != nil {
			t.Fatalf("Polls() error = %v", err)
		}
		for i, p := range polls {
			if p.ID != pollIDs[i] {
				t.Fatalf("Polls()[%d] = %s, want %v", i, p.ID, pollIDs)
			}
		}

		var want []string
		for i := 0; i < 8; i++ {
			pid := fmt.Sprintf("p%d", i)
			r := response(fmt.Sprintf("r%d", 9-i), pollIDs[0], pid, `{"slider":1}`, baseTime)
			if i == 4 {
				if _, err := s.InsertResponse(ctx, r); err != nil {
					t.Fatalf("InsertResponse() error = %v", err)
				}
			} else if _, _, err := s.UpsertResponse(ctx, r); err != nil {
				t.Fatalf("UpsertResponse() error = %v", err)
			}
			want = append(want, pid)
		}
		// Updating an answer keeps its place.
		if _, _, err := s.UpsertResponse(ctx, response("r-again", pollIDs[0], "p0", `{"slider":2}`, baseTime)); err != nil {
			t.Fatalf("UpsertResponse() repeat error = %v", err)
		}

		list, err := s.Responses(ctx, pollIDs[0])
		if err != nil {
			t.Fatalf("Responses() error = %v", err)
		}
		var got []string
		for _, r := range list {
			got = append(got, r.ParticipantID)
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("Responses() order = %v, want %v", got, want)
		}
	})
}

func TestConcurrentUpserts(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedSession(t, s, "s1", "K7QX")
		seedPoll(t, s, "open", "s1", "slide-1", true)

		const participants = 10
		const repeats = 5
		var wg sync.WaitGroup
		errs := make(chan error, participants*repeats)
		for p := 0; p < participants; p++ {
			for r := 0; r < repeats; r++ {
				wg.Add(1)
				go func(p, r int) {
					defer wg.Done()
					id := fmt.Sprintf("r-%d-%d", p, r)
					pid := fmt.Sprintf("p%d", p)
					if _, _, err := s.UpsertResponse(ctx, response(id, "open", pid, fmt.Sprintf(`%d`, r), baseTime)); err != nil {
						errs <- err
					}
				}(p, r)
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("UpsertResponse() error = %v", err)
		}

		list, err := s.Responses(ctx, "open")
		if err != nil {
			t.Fatalf("Responses() error = %v", err)
		}
		if len(list) != participants {
			t.Errorf("Responses() len = %d, want %d", len(list), participants)
		}
	})
}
