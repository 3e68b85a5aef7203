// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jpenzell/deck-live/models"
)

// State is a client-side cache of one session. Events may arrive twice or
// out of order: Apply keeps the newest version of each record by
// UpdatedAt, and re-applying a record it already holds does nothing.
// Replace resets the cache from a direct query.
type State struct {
	mu        sync.RWMutex
	session   models.Session
	polls     map[string]models.Poll
	responses map[string]map[string]models.Response // poll id -> participant id
}

func NewState() *State {
	return &State{
		polls:     make(map[string]models.Poll),
		responses: make(map[string]map[string]models.Response),
	}
}

// Replace discards the cache and loads snapshot.
func (s *State) Replace(snapshot models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = snapshot.Session
	s.polls = make(map[string]models.Poll, len(snapshot.Polls))
	s.responses = make(map[string]map[string]models.Response, len(snapshot.Responses))
	for _, p := range snapshot.Polls {
		s.polls[p.ID] = p
	}
	for pollID, list := range snapshot.Responses {
		byParticipant := make(map[string]models.Response, len(list))
		for _, r := range list {
			byParticipant[r.ParticipantID] = r
		}
		s.responses[pollID] = byParticipant
	}
}

// Apply merges one event and reports whether the cache changed.
func (s *State) Apply(e models.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Table {
	case models.TableSessions:
		var session models.Session
		if err := json.Unmarshal(e.Record, &session); err != nil {
			return false, fmt.Errorf("failed to decode session event: %w", err)
		}
		if s.session.ID != "" && session.ID != s.session.ID {
			return false, nil
		}
		if sameSession(session, s.session) {
			return false, nil
		}
		s.session = session
		return true, nil

	case models.TablePolls:
		var p models.Poll
		if err := json.Unmarshal(e.Record, &p); err != nil {
			return false, fmt.Errorf("failed to decode poll event: %w", err)
		}
		if held, ok := s.polls[p.ID]; ok {
			if held.UpdatedAt.After(p.UpdatedAt) || samePoll(held, p) {
				return false, nil
			}
		}
		s.polls[p.ID] = p
		return true, nil

	case models.TableResponses:
		if e.Action == models.ActionDelete {
			var cleared models.ResponsesCleared
			if err := json.Unmarshal(e.Record, &cleared); err != nil {
				return false, fmt.Errorf("failed to decode responses delete event: %w", err)
			}
			return s.clearLocked(cleared.PollID, e), nil
		}

		var r models.Response
		if err := json.Unmarshal(e.Record, &r); err != nil {
			return false, fmt.Errorf("failed to decode response event: %w", err)
		}
		byParticipant := s.responses[r.PollID]
		if byParticipant == nil {
			byParticipant = make(map[string]models.Response)
			s.responses[r.PollID] = byParticipant
		}
		if held, ok := byParticipant[r.ParticipantID]; ok {
			if held.UpdatedAt.After(r.UpdatedAt) || sameResponse(held, r) {
				return false, nil
			}
		}
		byParticipant[r.ParticipantID] = r
		return true, nil
	}
	return false, fmt.Errorf("unknown event table %q", e.Table)
}

// clearLocked drops responses of pollID last written before the reset.
// A late reset event must not erase answers submitted after it.
func (s *State) clearLocked(pollID string, e models.Event) bool {
	changed := false
	for pid, r := range s.responses[pollID] {
		if e.At.IsZero() || !r.UpdatedAt.After(e.At) {
			delete(s.responses[pollID], pid)
			changed = true
		}
	}
	return changed
}

func (s *State) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Polls returns cached polls ordered by creation.
func (s *State) Polls() []models.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()

	polls := make([]models.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		polls = append(polls, p)
	}
	sort.Slice(polls, func(i, j int) bool {
		if !polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].CreatedAt.Before(polls[j].CreatedAt)
		}
		return polls[i].ID < polls[j].ID
	})
	return polls
}

func (s *State) Poll(id string) (models.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	return p, ok
}

func (s *State) PollForSlide(slideID string) (models.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.polls {
		if p.SlideID == slideID {
			return p, true
		}
	}
	return models.Poll{}, false
}

// Responses returns cached responses of pollID in insertion order.
func (s *State) Responses(pollID string) []models.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Response, 0, len(s.responses[pollID]))
	for _, r := range s.responses[pollID] {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func sameSession(a, b models.Session) bool {
	return a.ID == b.ID && a.Code == b.Code && a.ParticipantCount == b.ParticipantCount &&
		a.CreatedAt.Equal(b.CreatedAt)
}

func samePoll(a, b models.Poll) bool {
	return a.ID == b.ID && a.SessionID == b.SessionID && a.SlideID == b.SlideID &&
		a.Type == b.Type && a.IsOpen == b.IsOpen && bytes.Equal(a.Config, b.Config) &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func sameResponse(a, b models.Response) bool {
	return a.ID == b.ID && a.PollID == b.PollID && a.ParticipantID == b.ParticipantID &&
		a.IsManual == b.IsManual && bytes.Equal(a.Value, b.Value) &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}
