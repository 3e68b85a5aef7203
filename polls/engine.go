// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"bytes"
	"context"
	"encoding/json"
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

// Engine runs the per-slide poll lifecycle. It stores poll config and
// response values without interpreting them.
type Engine struct {
	store        store.Store
	publisher    realtime.Publisher
	openOnCreate bool
	now          func() time.Time
}

type Option func(*Engine)

// WithOpenOnCreate sets whether Create inserts polls already open.
func WithOpenOnCreate(open bool) Option {
	return func(e *Engine) { e.openOnCreate = open }
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func NewEngine(s store.Store, pub realtime.Publisher, opts ...Option) *Engine {
	if pub == nil {
		pub = realtime.Nop{}
	}
	e := &Engine{
		store:     s,
		publisher: pub,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

// Create returns the poll for (sessionID, slideID), inserting it if absent.
// An existing poll is returned unchanged, whatever type and config are
// passed. An empty sessionID is the solo scope.
func (e *Engine) Create(ctx context.Context, sessionID, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	p, _, err := e.create(ctx, sessionID, slideID, pollType, config)
	return p, err
}

func (e *Engine) create(ctx context.Context, sessionID, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, bool, error) {
	slideID = strings.TrimSpace(slideID)
	if slideID == "" {
		return models.Poll{}, false, fmt.Errorf("slide_id is required: %w", models.ErrInvalidInput)
	}
	if !pollType.Valid() {
		return models.Poll{}, false, fmt.Errorf("unknown poll type %q: %w", pollType, models.ErrInvalidInput)
	}
	if len(bytes.TrimSpace(config)) == 0 || bytes.Equal(bytes.TrimSpace(config), []byte("null")) {
		config = json.RawMessage(`{}`)
	}
	if !json.Valid(config) {
		return models.Poll{}, false, fmt.Errorf("config must be JSON: %w", models.ErrInvalidInput)
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Poll{}, false, err
	}
	now := e.clock()
	p, created, err := e.store.CreatePollIfAbsent(ctx, models.Poll{
		ID:        id,
		SessionID: sessionID,
		SlideID:   slideID,
		Type:      pollType,
		Config:    config,
		IsOpen:    e.openOnCreate,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return models.Poll{}, false, fmt.Errorf("failed to create poll: %w", err)
	}
	if created {
		slog.Info("poll created", "poll_id", p.ID, "session_id", sessionID, "slide_id", slideID, "poll_type", pollType, "is_open", p.IsOpen)
		e.emit(ctx, models.TablePolls, models.ActionInsert, p.SessionID, p, now)
	}
	return p, created, nil
}

// Open makes the poll accept responses. Opening an open poll is a no-op.
func (e *Engine) Open(ctx context.Context, pollID string) (models.Poll, error) {
	return e.setOpen(ctx, pollID, true)
}

// Close stops the poll accepting responses. Closing a closed poll is a no-op.
func (e *Engine) Close(ctx context.Context, pollID string) (models.Poll, error) {
	return e.setOpen(ctx, pollID, false)
}

func (e *Engine) setOpen(ctx context.Context, pollID string, open bool) (models.Poll, error) {
	now := e.clock()
	p, changed, err := e.store.SetPollOpen(ctx, pollID, open, now)
	if err != nil {
		return models.Poll{}, wrap("failed to update poll", err)
	}
	if changed {
		slog.Info("poll state changed", "poll_id", p.ID, "session_id", p.SessionID, "is_open", p.IsOpen)
		e.emit(ctx, models.TablePolls, models.ActionUpdate, p.SessionID, p, now)
	}
	return p, nil
}

// Toggle is the one-button presenter flow: with no poll on the slide it
// creates one and opens it; otherwise it closes an open poll and reopens
// a closed one.
func (e *Engine) Toggle(ctx context.Context, sessionID, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	p, err := e.PollForSlide(ctx, sessionID, slideID)
	if errors.Is(err, models.ErrNotFound) {
		var created bool
		p, created, err = e.create(ctx, sessionID, slideID, pollType, config)
		if err != nil {
			return models.Poll{}, err
		}
		if created {
			return e.Open(ctx, p.ID)
		}
		// Lost a creation race; treat the winner like any existing poll.
	} else if err != nil {
		return models.Poll{}, err
	}

	if p.IsOpen {
		return e.Close(ctx, p.ID)
	}
	return e.Open(ctx, p.ID)
}

// ClearResponses deletes every response of the poll and leaves the poll,
// including its openness, as it was.
func (e *Engine) ClearResponses(ctx context.Context, pollID string) (models.Poll, int64, error) {
	p, err := e.Poll(ctx, pollID)
	if err != nil {
		return models.Poll{}, 0, err
	}
	n, err := e.store.DeleteResponses(ctx, pollID)
	if err != nil {
		return models.Poll{}, 0, fmt.Errorf("failed to clear responses: %w", err)
	}

	slog.Info("poll responses cleared", "poll_id", pollID, "session_id", p.SessionID, "deleted", n)
	e.emit(ctx, models.TableResponses, models.ActionDelete, p.SessionID, models.ResponsesCleared{PollID: pollID}, e.clock())
	return p, n, nil
}

// Submit records participantID's answer, replacing any earlier value. It
// fails with models.ErrPollClosed, and stores nothing, when the poll is
// not open at write time.
func (e *Engine) Submit(ctx context.Context, pollID, participantID string, value json.RawMessage) (models.Response, error) {
	if err := checkValue(value); err != nil {
		return models.Response{}, err
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return models.Response{}, fmt.Errorf("participant_id is required: %w", models.ErrInvalidInput)
	}
	if auth.IsManualParticipantID(participantID) {
		return models.Response{}, fmt.Errorf("participant_id uses the reserved manual prefix: %w", models.ErrInvalidInput)
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Response{}, err
	}
	now := e.clock()
	r, inserted, err := e.store.UpsertResponse(ctx, models.Response{
		ID:            id,
		PollID:        pollID,
		ParticipantID: participantID,
		Value:         value,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if errors.Is(err, models.ErrPollClosed) {
		metrics.RecordClosedRejection()
		return models.Response{}, err
	}
	if err != nil {
		return models.Response{}, wrap("failed to submit response", err)
	}
	metrics.RecordResponse(false)

	action := models.ActionUpdate
	if inserted {
		action = models.ActionInsert
	}
	e.emit(ctx, models.TableResponses, action, e.sessionOf(ctx, pollID), r, now)
	return r, nil
}

// SubmitManual adds a presenter-injected response under a fresh identity
// in the manual namespace. It does not check openness so demo data can be
// seeded before a poll opens.
func (e *Engine) SubmitManual(ctx context.Context, pollID string, value json.RawMessage) (models.Response, error) {
	if err := checkValue(value); err != nil {
		return models.Response{}, err
	}
	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Response{}, err
	}
	now := e.clock()
	r, err := e.store.InsertResponse(ctx, models.Response{
		ID:            id,
		PollID:        pollID,
		ParticipantID: auth.GenerateManualParticipantID(),
		Value:         value,
		IsManual:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return models.Response{}, wrap("failed to add manual response", err)
	}
	metrics.RecordResponse(true)
	e.emit(ctx, models.TableResponses, models.ActionInsert, e.sessionOf(ctx, pollID), r, now)
	return r, nil
}

// Responses returns the current responses in insertion order.
func (e *Engine) Responses(ctx context.Context, pollID string) ([]models.Response, error) {
	if _, err := e.Poll(ctx, pollID); err != nil {
		return nil, err
	}
	list, err := e.store.Responses(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	return list, nil
}

// PollForSlide returns the slide's poll or models.ErrNotFound.
func (e *Engine) PollForSlide(ctx context.Context, sessionID, slideID string) (models.Poll, error) {
	p, err := e.store.PollForSlide(ctx, sessionID, strings.TrimSpace(slideID))
	if err != nil {
		return models.Poll{}, wrap("failed to load poll", err)
	}
	return p, nil
}

func (e *Engine) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	p, err := e.store.Poll(ctx, pollID)
	if err != nil {
		return models.Poll{}, wrap("failed to load poll", err)
	}
	return p, nil
}

// Polls lists the session's polls in creation order.
func (e *Engine) Polls(ctx context.Context, sessionID string) ([]models.Poll, error) {
	list, err := e.store.Polls(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load polls: %w", err)
	}
	return list, nil
}

func (e *Engine) emit(ctx context.Context, table models.Table, action models.Action, sessionID string, record any, at time.Time) {
	// Solo polls have no subscribers.
	if sessionID == "" {
		return
	}
	realtime.Emit(ctx, e.publisher, table, action, sessionID, record, at)
}

func (e *Engine) sessionOf(ctx context.Context, pollID string) string {
	p, err := e.store.Poll(ctx, pollID)
	if err != nil {
		return ""
	}
	return p.SessionID
}

func checkValue(value json.RawMessage) error {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return models.ErrEmptyValue
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("value must be JSON: %w", models.ErrInvalidInput)
	}
	return nil
}

// wrap keeps expected outcomes bare and wraps everything else.
func wrap(msg string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrPollClosed), errors.Is(err, models.ErrConflict):
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
