// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/jpenzell/deck-live/models"
)

// MemoryStore keeps everything in process memory. The solo backend uses
// it, and so do tests that do not need SQL.
type MemoryStore struct {
	mu sync.Mutex

	sessions     map[string]models.Session
	sessionCodes map[string]string
	participants map[string]map[string]time.Time

	polls      map[string]models.Poll
	pollSlides map[slideKey]string
	pollOrder  map[string][]string

	responses map[string][]models.Response
}

type slideKey struct {
	sessionID string
	slideID   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:     make(map[string]models.Session),
		sessionCodes: make(map[string]string),
		participants: make(map[string]map[string]time.Time),
		polls:        make(map[string]models.Poll),
		pollSlides:   make(map[slideKey]string),
		pollOrder:    make(map[string][]string),
		responses:    make(map[string][]models.Response),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessionCodes[s.Code]; ok {
		return models.ErrConflict
	}
	if _, ok := m.sessions[s.ID]; ok {
		return models.ErrConflict
	}
	s.ParticipantCount = 0
	s.CreatedAt = truncate(s.CreatedAt)
	m.sessions[s.ID] = s
	m.sessionCodes[s.Code] = s.ID
	return nil
}

func (m *MemoryStore) SessionByCode(_ context.Context, code string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.sessionCodes[code]
	if !ok {
		return models.Session{}, models.ErrNotFound
	}
	return m.sessionLocked(id)
}

func (m *MemoryStore) SessionByID(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked(id)
}

func (m *MemoryStore) sessionLocked(id string) (models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, models.ErrNotFound
	}
	s.ParticipantCount = len(m.participants[id])
	return s, nil
}

func (m *MemoryStore) AddParticipant(_ context.Context, sessionID, participantID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false, models.ErrNotFound
	}
	set := m.participants[sessionID]
	if set == nil {
		set = make(map[string]time.Time)
		m.participants[sessionID] = set
	}
	if _, ok := set[participantID]; ok {
		return false, nil
	}
	set[participantID] = at
	return true, nil
}

func (m *MemoryStore) RemoveParticipant(_ context.Context, sessionID, participantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.participants[sessionID]
	if _, ok := set[participantID]; !ok {
		return false, nil
	}
	delete(set, participantID)
	return true, nil
}

func (m *MemoryStore) CountParticipants(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[sessionID]), nil
}

func (m *MemoryStore) CreatePollIfAbsent(_ context.Context, p models.Poll) (models.Poll, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slideKey{p.SessionID, p.SlideID}
	if id, ok := m.pollSlides[key]; ok {
		return clonePoll(m.polls[id]), false, nil
	}
	if len(p.Config) == 0 {
		p.Config = []byte("{}")
	}
	p = clonePoll(p)
	p.CreatedAt = truncate(p.CreatedAt)
	p.UpdatedAt = truncate(p.UpdatedAt)
	m.polls[p.ID] = p
	m.pollSlides[key] = p.ID
	m.pollOrder[p.SessionID] = append(m.pollOrder[p.SessionID], p.ID)
	return clonePoll(p), true, nil
}

func (m *MemoryStore) Poll(_ context.Context, id string) (models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.polls[id]
	if !ok {
		return models.Poll{}, models.ErrNotFound
	}
	return clonePoll(p), nil
}

func (m *MemoryStore) PollForSlide(_ context.Context, sessionID, slideID string) (models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.pollSlides[slideKey{sessionID, slideID}]
	if !ok {
		return models.Poll{}, models.ErrNotFound
	}
	return clonePoll(m.polls[id]), nil
}

func (m *MemoryStore) Polls(_ context.Context, sessionID string) ([]models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	polls := make([]models.Poll, 0, len(m.pollOrder[sessionID]))
	for _, id := range m.pollOrder[sessionID] {
		polls = append(polls, clonePoll(m.polls[id]))
	}
	return polls, nil
}

func (m *MemoryStore) SetPollOpen(_ context.Context, id string, open bool, at time.Time) (models.Poll, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.polls[id]
	if !ok {
		return models.Poll{}, false, models.ErrNotFound
	}
	if p.IsOpen == open {
		return clonePoll(p), false, nil
	}
	p.IsOpen = open
	p.UpdatedAt = truncate(at)
	m.polls[id] = p
	return clonePoll(p), true, nil
}

func (m *MemoryStore) UpsertResponse(_ context.Context, r models.Response) (models.Response, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.polls[r.PollID]
	if !ok {
		return models.Response{}, false, models.ErrNotFound
	}
	if !p.IsOpen {
		return models.Response{}, false, models.ErrPollClosed
	}

	list := m.responses[r.PollID]
	for i := range list {
		if list[i].ParticipantID == r.ParticipantID {
			list[i].Value = bytes.Clone(r.Value)
			list[i].UpdatedAt = truncate(r.UpdatedAt)
			return cloneResponse(list[i]), false, nil
		}
	}

	r = cloneResponse(r)
	r.CreatedAt = truncate(r.CreatedAt)
	r.UpdatedAt = truncate(r.UpdatedAt)
	m.responses[r.PollID] = append(list, r)
	return cloneResponse(r), true, nil
}

func (m *MemoryStore) InsertResponse(_ context.Context, r models.Response) (models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.polls[r.PollID]; !ok {
		return models.Response{}, models.ErrNotFound
	}
	for _, existing := range m.responses[r.PollID] {
		if existing.ParticipantID == r.ParticipantID {
			return models.Response{}, models.ErrConflict
		}
	}

	r = cloneResponse(r)
	r.CreatedAt = truncate(r.CreatedAt)
	r.UpdatedAt = truncate(r.UpdatedAt)
	m.responses[r.PollID] = append(m.responses[r.PollID], r)
	return cloneResponse(r), nil
}

func (m *MemoryStore) DeleteResponses(_ context.Context, pollID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.responses[pollID]))
	delete(m.responses, pollID)
	return n, nil
}

func (m *MemoryStore) Responses(_ context.Context, pollID string) ([]models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.responses[pollID]
	out := make([]models.Response, 0, len(list))
	for _, r := range list {
		out = append(out, cloneResponse(r))
	}
	return out, nil
}

// truncate matches the millisecond precision of the SQL store.
func truncate(t time.Time) time.Time {
	return fromMillis(toMillis(t))
}

func clonePoll(p models.Poll) models.Poll {
	p.Config = bytes.Clone(p.Config)
	return p
}

func cloneResponse(r models.Response) models.Response {
	r.Value = bytes.Clone(r.Value)
	return r
}
