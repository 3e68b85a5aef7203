// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"time"

	"github.com/jpenzell/deck-live/models"
)

// Store is the single shared mutable resource behind the session directory
// and the poll engine. Nothing else writes to it.
//
// Implementations must make AddParticipant, CreatePollIfAbsent and
// UpsertResponse atomic at the row level.
type Store interface {
	// CreateSession inserts s. A duplicate code returns models.ErrConflict.
	CreateSession(ctx context.Context, s models.Session) error
	SessionByCode(ctx context.Context, code string) (models.Session, error)
	SessionByID(ctx context.Context, id string) (models.Session, error)
	// AddParticipant registers participantID once; added is false on repeats.
	AddParticipant(ctx context.Context, sessionID, participantID string, at time.Time) (added bool, err error)
	RemoveParticipant(ctx context.Context, sessionID, participantID string) (removed bool, err error)
	CountParticipants(ctx context.Context, sessionID string) (int, error)

	// CreatePollIfAbsent inserts p unless a poll already exists for
	// (p.SessionID, p.SlideID), and returns whichever poll is stored.
	CreatePollIfAbsent(ctx context.Context, p models.Poll) (stored models.Poll, created bool, err error)
	Poll(ctx context.Context, id string) (models.Poll, error)
	PollForSlide(ctx context.Context, sessionID, slideID string) (models.Poll, error)
	Polls(ctx context.Context, sessionID string) ([]models.Poll, error)
	// SetPollOpen sets is_open; changed is false when it already had that value.
	SetPollOpen(ctx context.Context, id string, open bool, at time.Time) (p models.Poll, changed bool, err error)

	// UpsertResponse inserts r, or overwrites the value of the existing row
	// for (r.PollID, r.ParticipantID). It fails with models.ErrPollClosed,
	// without writing, when the poll is not open.
	UpsertResponse(ctx context.Context, r models.Response) (stored models.Response, inserted bool, err error)
	// InsertResponse stores r without the open gate.
	InsertResponse(ctx context.Context, r models.Response) (models.Response, error)
	DeleteResponses(ctx context.Context, pollID string) (int64, error)
	// Responses returns the poll's responses in insertion order.
	Responses(ctx context.Context, pollID string) ([]models.Response, error)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
