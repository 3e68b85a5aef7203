// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/identity"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/role"
)

// ErrNoAPI is returned when a networked role is resolved without an API.
var ErrNoAPI = errors.New("networked role needs an API client")

// Options describe one page load.
type Options struct {
	// API is required unless the role resolves to Solo.
	API *API
	// Identity defaults to an in-memory store.
	Identity *identity.Store
	Query    url.Values
	Host     bool
}

// Deck is one browser's view of the poll layer: a resolved role, an
// identity and the backend that role talks to. Operations the role may
// not invoke fail with models.ErrForbidden before any call is made.
type Deck struct {
	role          role.Role
	session       models.Session
	presenterKey  string
	participantID string
	api           *API
	identity      *identity.Store
	backend       Backend
}

// Open resolves the role for opts and prepares its backend. A Presenter
// with no session creates one; a Participant joins. An unknown join code
// fails with models.ErrNotFound and clears the remembered membership.
func Open(ctx context.Context, opts Options) (*Deck, error) {
	id := opts.Identity
	if id == nil {
		id = identity.New(identity.NewMemoryStorage())
	}

	res := role.Resolve(role.Input{Query: opts.Query, Identity: id, Host: opts.Host})
	d := &Deck{role: res.Role, api: opts.API, identity: id}

	if res.Role == role.Solo {
		d.participantID = id.SoloParticipantID()
		d.backend = NewSoloBackend()
		return d, nil
	}
	if opts.API == nil {
		return nil, ErrNoAPI
	}
	d.participantID = id.ParticipantID()

	switch {
	case res.Role == role.Presenter && res.NewSession:
		created, err := opts.API.CreateSession(ctx)
		if err != nil {
			return nil, err
		}
		id.RememberPresenter(created.Session.Code, created.PresenterKey)
		d.session = created.Session
		d.presenterKey = created.PresenterKey
		slog.Info("session created", "code", created.Session.Code)

	case res.Role == role.Presenter:
		session, err := opts.API.Session(ctx, res.Code)
		if errors.Is(err, models.ErrNotFound) {
			id.Forget()
		}
		if err != nil {
			return nil, err
		}
		d.session = session
		d.presenterKey = res.PresenterKey

	default:
		session, err := opts.API.Join(ctx, res.Code, d.participantID)
		if errors.Is(err, models.ErrNotFound) {
			id.Forget()
		}
		if err != nil {
			return nil, err
		}
		id.RememberJoin(session.Code)
		d.session = session
	}

	d.backend = NewRemoteBackend(opts.API, d.session.Code, d.presenterKey)
	return d, nil
}

func (d *Deck) Role() role.Role { return d.role }

// Session is empty in solo mode. ParticipantCount is as of Open.
func (d *Deck) Session() models.Session { return d.session }

func (d *Deck) Code() string { return d.session.Code }

func (d *Deck) ParticipantID() string { return d.participantID }

// PresenterKey is empty unless the role is Presenter.
func (d *Deck) PresenterKey() string { return d.presenterKey }

func (d *Deck) allow(op role.Op) error {
	if !role.Permits(d.role, op) {
		return fmt.Errorf("%s as %s: %w", op, d.role, models.ErrForbidden)
	}
	return nil
}

func (d *Deck) CreatePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	if err := d.allow(role.OpCreate); err != nil {
		return models.Poll{}, err
	}
	return d.backend.CreatePoll(ctx, slideID, pollType, config)
}

// TogglePoll is the presenter's one button: create and open, then close,
// then reopen.
func (d *Deck) TogglePoll(ctx context.Context, slideID string, pollType models.PollType, config json.RawMessage) (models.Poll, error) {
	if err := d.allow(role.OpToggle); err != nil {
		return models.Poll{}, err
	}
	return d.backend.TogglePoll(ctx, slideID, pollType, config)
}

func (d *Deck) OpenPoll(ctx context.Context, pollID string) (models.Poll, error) {
	if err := d.allow(role.OpOpen); err != nil {
		return models.Poll{}, err
	}
	return d.backend.OpenPoll(ctx, pollID)
}

func (d *Deck) ClosePoll(ctx context.Context, pollID string) (models.Poll, error) {
	if err := d.allow(role.OpClose); err != nil {
		return models.Poll{}, err
	}
	return d.backend.ClosePoll(ctx, pollID)
}

func (d *Deck) ClearResponses(ctx context.Context, pollID string) (models.Poll, int64, error) {
	if err := d.allow(role.OpReset); err != nil {
		return models.Poll{}, 0, err
	}
	return d.backend.ClearResponses(ctx, pollID)
}

// Submit records this browser's answer. Empty values are rejected here,
// before any call.
func (d *Deck) Submit(ctx context.Context, pollID string, value json.RawMessage) (models.Response, error) {
	if err := d.allow(role.OpSubmit); err != nil {
		return models.Response{}, err
	}
	if isEmpty(value) {
		return models.Response{}, models.ErrEmptyValue
	}
	return d.backend.Submit(ctx, pollID, d.participantID, value)
}

func (d *Deck) SubmitManual(ctx context.Context, pollID string, value json.RawMessage) (models.Response, error) {
	if err := d.allow(role.OpInject); err != nil {
		return models.Response{}, err
	}
	if isEmpty(value) {
		return models.Response{}, models.ErrEmptyValue
	}
	return d.backend.SubmitManual(ctx, pollID, value)
}

func (d *Deck) Responses(ctx context.Context, pollID string) ([]models.Response, error) {
	if err := d.allow(role.OpRead); err != nil {
		return nil, err
	}
	return d.backend.Responses(ctx, pollID)
}

func (d *Deck) PollForSlide(ctx context.Context, slideID string) (models.Poll, error) {
	if err := d.allow(role.OpRead); err != nil {
		return models.Poll{}, err
	}
	return d.backend.PollForSlide(ctx, slideID)
}

func (d *Deck) Polls(ctx context.Context) ([]models.Poll, error) {
	if err := d.allow(role.OpRead); err != nil {
		return nil, err
	}
	return d.backend.Polls(ctx)
}

// Leave unregisters a participant and forgets the membership. Presenters
// and solo decks only forget.
func (d *Deck) Leave(ctx context.Context) error {
	if d.role == role.Participant {
		if _, err := d.api.Leave(ctx, d.session.Code, d.participantID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
	}
	d.identity.Forget()
	return nil
}

func isEmpty(value json.RawMessage) bool {
	v := bytes.TrimSpace(value)
	return len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte(`""`))
}

// ValidateJoinCode checks a typed code before any network call.
func ValidateJoinCode(code string) (string, error) {
	return auth.ValidateCode(code)
}
