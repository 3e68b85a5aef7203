// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"log/slog"
	"sync"

	"github.com/jpenzell/deck-live/auth"
)

// Storage keys
const (
	KeyParticipantID     = "participant_id"
	KeySoloParticipantID = "solo_participant_id"
	KeyJoinedCode        = "joined_code"
	KeyPresenterCode     = "presenter_code"
	KeyPresenterKey      = "presenter_key"
)

// Store resolves the stable identity of one client. It never returns an
// error: when storage fails, values live in memory until the Store is
// discarded.
type Store struct {
	storage Storage

	mu       sync.Mutex
	fallback map[string]string
}

func New(storage Storage) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Store{storage: storage, fallback: make(map[string]string)}
}

// ParticipantID returns the networked identity, creating it on first use.
func (s *Store) ParticipantID() string {
	return s.getOrCreate(KeyParticipantID, auth.GenerateParticipantID)
}

// SoloParticipantID returns the solo identity. It is never sent on joins.
func (s *Store) SoloParticipantID() string {
	return s.getOrCreate(KeySoloParticipantID, auth.GenerateSoloParticipantID)
}

// RememberJoin records the session this client joined as a participant.
func (s *Store) RememberJoin(code string) {
	s.set(KeyJoinedCode, auth.NormalizeCode(code))
}

// JoinedCode returns the remembered participant session, if any.
func (s *Store) JoinedCode() (string, bool) {
	return s.get(KeyJoinedCode)
}

// RememberPresenter records that this client created the session.
func (s *Store) RememberPresenter(code, presenterKey string) {
	s.set(KeyPresenterCode, auth.NormalizeCode(code))
	s.set(KeyPresenterKey, presenterKey)
}

// PresenterCode returns the remembered presenter session, if any.
func (s *Store) PresenterCode() (string, bool) {
	return s.get(KeyPresenterCode)
}

// PresenterKey returns the presenter key held for code.
func (s *Store) PresenterKey(code string) (string, bool) {
	held, ok := s.get(KeyPresenterCode)
	if !ok || held != auth.NormalizeCode(code) {
		return "", false
	}
	return s.get(KeyPresenterKey)
}

// Forget drops remembered sessions. Participant identities are kept.
func (s *Store) Forget() {
	for _, key := range []string{KeyJoinedCode, KeyPresenterCode, KeyPresenterKey} {
		s.mu.Lock()
		delete(s.fallback, key)
		s.mu.Unlock()
		if err := s.storage.Delete(key); err != nil {
			slog.Warn("identity storage delete failed", "key", key, "error", err)
		}
	}
}

func (s *Store) getOrCreate(key string, generate func() string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.fallback[key]; ok {
		return v
	}

	v, ok, err := s.storage.Get(key)
	if err != nil {
		slog.Warn("identity storage unavailable, using in-memory identity", "key", key, "error", err)
	}
	if err == nil && ok && v != "" {
		return v
	}

	v = generate()
	if err == nil {
		if err = s.storage.Set(key, v); err != nil {
			slog.Warn("identity storage unavailable, using in-memory identity", "key", key, "error", err)
		}
	}
	if err != nil {
		s.fallback[key] = v
	}
	return v
}

func (s *Store) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.fallback[key]; ok {
		return v, true
	}
	v, ok, err := s.storage.Get(key)
	if err != nil {
		slog.Warn("identity storage read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok && v != ""
}

func (s *Store) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(key, value); err != nil {
		slog.Warn("identity storage write failed, keeping value in memory", "key", key, "error", err)
		s.fallback[key] = value
		return
	}
	delete(s.fallback, key)
}
