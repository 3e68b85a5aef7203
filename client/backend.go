// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"context"
	"encoding/json"

	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/store"
)

// Backend runs poll operations for one scope. The remote backend talks
// to a session over HTTP; the solo backend runs the same engine over a
// private in-memory store. Both report outcomes with the models sentinels.
type Backend interface {
	CreatePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error)
	TogglePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error)
	OpenPoll(ctx context.Context, pollID string) (models.Poll, error)
	ClosePoll(ctx context.Context, pollID string) (models.Poll, error)
	ClearResponses(ctx context.Context, pollID string) (models.Poll, int64, error)
	Submit(ctx context.Context, pollID, participantID string, value json.RawMessage) (models.Response, error)
	SubmitManual(ctx context.Context, pollID string, value json.RawMessage) (models.Response, error)
	Responses(ctx context.Context, pollID string) ([]models.Response, error)
	PollForSlide(ctx context.Context, slideID string) (models.Poll, error)
	Polls(ctx context.Context) ([]models.Poll, error)
}

// remoteBackend scopes API calls to one session. presenterKey is empty
// for participants; the server then rejects presenter operations.
type remoteBackend struct {
	api          *API
	code         string
	presenterKey string
}

func NewRemoteBackend(api *API, code, presenterKey string) Backend {
	return &remoteBackend{api: api, code: code, presenterKey: presenterKey}
}

func (b *remoteBackend) CreatePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	return b.api.CreatePoll(ctx, b.code, b.presenterKey, models.CreatePollRequest{SlideID: slideID, Type: pollType, Config: config})
}

func (b *remoteBackend) TogglePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	return b.api.TogglePoll(ctx, b.code, b.presenterKey, models.CreatePollRequest{SlideID: slideID, Type: pollType, Config: config})
}

func (b *remoteBackend) OpenPoll(ctx context.Context, pollID string) (models.Poll, error) {
	return b.api.OpenPoll(ctx, b.presenterKey, pollID)
}

func (b *remoteBackend) ClosePoll(ctx context.Context, pollID string) (models.Poll, error) {
	return b.api.ClosePoll(ctx, b.presenterKey, pollID)
}

func (b *remoteBackend) ClearResponses(ctx context.Context, pollID string) (models.Poll, int64, error) {
	out, err := b.api.ResetPoll(ctx, b.presenterKey, pollID)
	return out.Poll, out.Deleted, err
}

func (b *remoteBackend) Submit(ctx context.Context, pollID, participantID string, value json.RawMessage) (models.Response, error) {
	return b.api.Submit(ctx, pollID, participantID, value)
}

func (b *remoteBackend) SubmitManual(ctx context.Context, pollID string, value json.RawMessage) (models.Response, error) {
	return b.api.SubmitManual(ctx, b.presenterKey, pollID, value)
}

func (b *remoteBackend) Responses(ctx context.Context, pollID string) ([]models.Response, error) {
	return b.api.Responses(ctx, pollID)
}

func (b *remoteBackend) PollForSlide(ctx context.Context, slideID string) (models.Poll, error) {
	return b.api.PollForSlide(ctx, b.code, slideID)
}

func (b *remoteBackend) Polls(ctx context.Context) ([]models.Poll, error) {
	return b.api.Polls(ctx, b.code)
}

// soloBackend is the engine in the solo scope: no session, no events.
type soloBackend struct {
	engine *polls.Engine
}

// NewSoloBackend starts an empty ephemeral poll store. State lives as
// long as the returned value.
func NewSoloBackend(opts ...polls.Option) Backend {
	return &soloBackend{engine: polls.NewEngine(store.NewMemoryStore(), nil, opts...)}
}

func (b *soloBackend) CreatePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	return b.engine.Create(ctx, "", slideID, pollType, config)
}

func (b *soloBackend) TogglePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	return b.engine.Toggle(ctx, "", slideID, pollType, config)
}

func (b *soloBackend) OpenPoll(ctx context.Context, pollID string) (models.Poll, error) {
	return b.engine.Open(ctx, pollID)
}

func (b *soloBackend) ClosePoll(ctx context.Context, pollID string) (models.Poll, error) {
	return b.engine.Close(ctx, pollID)
}

func (b *soloBackend) ClearResponses(ctx context.Context, pollID string) (models.Poll, int64, error) {
	return b.engine.ClearResponses(ctx, pollID)
}

func (b *soloBackend) Submit(ctx context.Context, pollID, participantID string, value json.RawMessage) (models.Response, error) {
	return b.engine.Submit(ctx, pollID, participantID, value)
}

func (b *soloBackend) SubmitManual(ctx context.Context, pollID string, value json.RawMessage) (models.Response, error) {
	return b.engine.SubmitManual(ctx, pollID, value)
}

func (b *soloBackend) Responses(ctx context.Context, pollID string) ([]models.Response, error) {
	return b.engine.Responses(ctx, pollID)
}

func (b *soloBackend) PollForSlide(ctx context.Context, slideID string) (models.Poll, error) {
	return b.engine.PollForSlide(ctx, "", slideID)
}

func (b *soloBackend) Polls(ctx context.Context) ([]models.Poll, error) {
	return b.engine.Polls(ctx, "")
}
