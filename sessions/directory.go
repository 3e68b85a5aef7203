// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/metrics"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/realtime"
	"github.com/jpenzell/deck-live/store"
)

// MaxCodeAttempts bounds how many join codes Create tries before giving up
const MaxCodeAttempts = 32

var ErrCodeSpaceExhausted = errors.New("no free join code after retries")

// Directory maps join codes to sessions and tracks who joined.
type Directory struct {
	store     store.Store
	publisher realtime.Publisher
	newCode   func() (string, error)
	now       func() time.Time
	attempts  int
}

type Option func(*Directory)

// WithCodeGenerator replaces auth.GenerateJoinCode.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(d *Directory) { d.newCode = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(d *Directory) { d.now = fn }
}

// WithMaxAttempts overrides MaxCodeAttempts.
func WithMaxAttempts(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.attempts = n
		}
	}
}

func NewDirectory(s store.Store, pub realtime.Publisher, opts ...Option) *Directory {
	if pub == nil {
		pub = realtime.Nop{}
	}
	d := &Directory{
		store:     s,
		publisher: pub,
		newCode:   auth.GenerateJoinCode,
		now:       func() time.Time { return time.Now().UTC() },
		attempts:  MaxCodeAttempts,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create allocates a session with a fresh join code, re-rolling on
// collision.
func (d *Directory) Create(ctx context.Context) (models.Session, error) {
	for attempt := 1; attempt <= d.attempts; attempt++ {
		code, err := d.newCode()
		if err != nil {
			return models.Session{}, err
		}
		id, err := auth.GenerateID(16)
		if err != nil {
			return models.Session{}, err
		}

		session := models.Session{
			ID:        id,
			Code:      auth.NormalizeCode(code),
			CreatedAt: d.now().Truncate(time.Millisecond),
		}
		err = d.store.CreateSession(ctx, session)
		if errors.Is(err, models.ErrConflict) {
			slog.Debug("join code collision, re-rolling", "code", session.Code, "attempt", attempt)
			continue
		}
		if err != nil {
			return models.Session{}, fmt.Errorf("failed to create session: %w", err)
		}

		metrics.RecordSessionCreated()
		slog.Info("session created", "session_id", session.ID, "code", session.Code)
		realtime.Emit(ctx, d.publisher, models.TableSessions, models.ActionInsert, session.ID, session, session.CreatedAt)
		return session, nil
	}
	return models.Session{}, ErrCodeSpaceExhausted
}

// Join normalizes code, looks up the session and registers participantID.
// Rejoining with the same identity does not change the count.
func (d *Directory) Join(ctx context.Context, code, participantID string) (models.Session, error) {
	code, err := auth.ValidateCode(code)
	if err != nil {
		return models.Session{}, err
	}
	if err := checkParticipant(participantID); err != nil {
		return models.Session{}, err
	}

	session, err := d.lookup(ctx, code)
	if err != nil {
		return models.Session{}, err
	}

	added, err := d.store.AddParticipant(ctx, session.ID, participantID, d.now())
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to join session: %w", err)
	}
	metrics.RecordJoin(added)

	session, err = d.refreshCount(ctx, session)
	if err != nil {
		return models.Session{}, err
	}
	if added {
		slog.Info("participant joined", "session_id", session.ID, "participant_count", session.ParticipantCount)
		realtime.Emit(ctx, d.publisher, models.TableSessions, models.ActionUpdate, session.ID, session, d.now())
	}
	return session, nil
}

// Leave removes participantID from the session. Leaving twice is a no-op.
func (d *Directory) Leave(ctx context.Context, code, participantID string) (models.Session, error) {
	code, err := auth.ValidateCode(code)
	if err != nil {
		return models.Session{}, err
	}
	if err := checkParticipant(participantID); err != nil {
		return models.Session{}, err
	}

	session, err := d.lookup(ctx, code)
	if err != nil {
		return models.Session{}, err
	}

	removed, err := d.store.RemoveParticipant(ctx, session.ID, participantID)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to leave session: %w", err)
	}

	session, err = d.refreshCount(ctx, session)
	if err != nil {
		return models.Session{}, err
	}
	if removed {
		slog.Info("participant left", "session_id", session.ID, "participant_count", session.ParticipantCount)
		realtime.Emit(ctx, d.publisher, models.TableSessions, models.ActionUpdate, session.ID, session, d.now())
	}
	return session, nil
}

// Lookup returns the session for code with its live participant count.
func (d *Directory) Lookup(ctx context.Context, code string) (models.Session, error) {
	code, err := auth.ValidateCode(code)
	if err != nil {
		return models.Session{}, err
	}
	return d.lookup(ctx, code)
}

// Get returns the session by internal id.
func (d *Directory) Get(ctx context.Context, sessionID string) (models.Session, error) {
	session, err := d.store.SessionByID(ctx, sessionID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.Session{}, fmt.Errorf("failed to look up session: %w", err)
	}
	return session, err
}

func (d *Directory) ParticipantCount(ctx context.Context, sessionID string) (int, error) {
	if _, err := d.Get(ctx, sessionID); err != nil {
		return 0, err
	}
	n, err := d.store.CountParticipants(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

func (d *Directory) lookup(ctx context.Context, code string) (models.Session, error) {
	session, err := d.store.SessionByCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return models.Session{}, err
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to look up session: %w", err)
	}
	return session, nil
}

func (d *Directory) refreshCount(ctx context.Context, session models.Session) (models.Session, error) {
	n, err := d.store.CountParticipants(ctx, session.ID)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to count participants: %w", err)
	}
	session.ParticipantCount = n
	return session, nil
}

// checkParticipant rejects empty and solo identities. Solo identities
// never take part in joins.
func checkParticipant(participantID string) error {
	if strings.TrimSpace(participantID) == "" {
		return fmt.Errorf("participant_id is required: %w", models.ErrInvalidInput)
	}
	if strings.HasPrefix(participantID, models.SoloIDPrefix) {
		return fmt.Errorf("solo identities cannot join sessions: %w", models.ErrInvalidInput)
	}
	return nil
}
