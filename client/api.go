// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpenzell/deck-live/models"
)

// ErrTransport matches every *TransportError.
var ErrTransport = errors.New("transport failure")

// TransportError is a network failure or a server reply that carries no
// domain outcome. Every mutating call is idempotent, so retrying is safe.
type TransportError struct {
	Op     string
	Status int // 0 when no response arrived
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// presenterKeyHeader authorizes presenter calls
const presenterKeyHeader = "X-Presenter-Key"

// API is a typed client for the deck-live HTTP API. Error bodies are
// mapped back to the models sentinels.
type API struct {
	baseURL    string
	httpClient *http.Client
}

type APIOption func(*API)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.httpClient = c }
}

func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RealtimeURL is the websocket address of the session's change feed.
func (a *API) RealtimeURL(code string) string {
	u := a.baseURL + "/sessions/" + url.PathEscape(code) + "/realtime"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (a *API) CreateSession(ctx context.Context) (models.CreateSessionResponse, error) {
	var out models.CreateSessionResponse
	err := a.do(ctx, "create session", http.MethodPost, "/sessions", "", nil, &out)
	return out, err
}

func (a *API) Session(ctx context.Context, code string) (models.Session, error) {
	var out models.Session
	err := a.do(ctx, "get session", http.MethodGet, sessionPath(code, ""), "", nil, &out)
	return out, err
}

func (a *API) Join(ctx context.Context, code, participantID string) (models.Session, error) {
	var out models.Session
	err := a.do(ctx, "join session", http.MethodPost, sessionPath(code, "/join"), "",
		models.JoinSessionRequest{ParticipantID: participantID}, &out)
	return out, err
}

func (a *API) Leave(ctx context.Context, code, participantID string) (models.Session, error) {
	var out models.Session
	err := a.do(ctx, "leave session", http.MethodPost, sessionPath(code, "/leave"), "",
		models.JoinSessionRequest{ParticipantID: participantID}, &out)
	return out, err
}

func (a *API) ParticipantCount(ctx context.Context, code string) (int, error) {
	var out models.ParticipantCountResponse
	err := a.do(ctx, "count participants", http.MethodGet, sessionPath(code, "/participants/count"), "", nil, &out)
	return out.ParticipantCount, err
}

// State fetches the full snapshot used to resync after a reconnect.
func (a *API) State(ctx context.Context, code string) (models.SessionState, error) {
	var out models.SessionState
	err := a.do(ctx, "get state", http.MethodGet, sessionPath(code, "/state"), "", nil, &out)
	return out, err
}

func (a *API) Polls(ctx context.Context, code string) ([]models.Poll, error) {
	var out []models.Poll
	err := a.do(ctx, "list polls", http.MethodGet, sessionPath(code, "/polls"), "", nil, &out)
	return out, err
}

func (a *API) CreatePoll(ctx context.Context, code, presenterKey string, req models.CreatePollRequest) (models.Poll, error) {
	var out models.Poll
	err := a.do(ctx, "create poll", http.MethodPost, sessionPath(code, "/polls"), presenterKey, req, &out)
	return out, err
}

func (a *API) TogglePoll(ctx context.Context, code, presenterKey string, req models.CreatePollRequest) (models.Poll, error) {
	var out models.Poll
	err := a.do(ctx, "toggle poll", http.MethodPost, sessionPath(code, "/polls/toggle"), presenterKey, req, &out)
	return out, err
}

func (a *API) PollForSlide(ctx context.Context, code, slideID string) (models.Poll, error) {
	var out models.Poll
	err := a.do(ctx, "get slide poll", http.MethodGet, sessionPath(code, "/slides/"+url.PathEscape(slideID)+"/poll"), "", nil, &out)
	return out, err
}

func (a *API) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	var out models.Poll
	err := a.do(ctx, "get poll", http.MethodGet, pollPath(pollID, ""), "", nil, &out)
	return out, err
}

func (a *API) OpenPoll(ctx context.Context, presenterKey, pollID string) (models.Poll, error) {
	var out models.Poll
	err := a.do(ctx, "open poll", http.MethodPost, pollPath(pollID, "/open"), presenterKey, nil, &out)
	return out, err
}

func (a *API) ClosePoll(ctx context.Context, presenterKey, pollID string) (models.Poll, error) {
	var out models.Poll
	err := a.do(ctx, "close poll", http.MethodPost, pollPath(pollID, "/close"), presenterKey, nil, &out)
	return out, err
}

func (a *API) ResetPoll(ctx context.Context, presenterKey, pollID string) (models.ClearResponsesResponse, error) {
	var out models.ClearResponsesResponse
	err := a.do(ctx, "reset poll", http.MethodPost, pollPath(pollID, "/reset"), presenterKey, nil, &out)
	return out, err
}

func (a *API) Responses(ctx context.Context, pollID string) ([]models.Response, error) {
	var out []models.Response
	err := a.do(ctx, "list responses", http.MethodGet, pollPath(pollID, "/responses"), "", nil, &out)
	return out, err
}

func (a *API) Submit(ctx context.Context, pollID, participantID string, value json.RawMessage) (models.Response, error) {
	var out models.Response
	err := a.do(ctx, "submit response", http.MethodPost, pollPath(pollID, "/responses"), "",
		models.SubmitResponseRequest{ParticipantID: participantID, Value: value}, &out)
	return out, err
}

func (a *API) SubmitManual(ctx context.Context, presenterKey, pollID string, value json.RawMessage) (models.Response, error) {
	var out models.Response
	err := a.do(ctx, "add manual response", http.MethodPost, pollPath(pollID, "/responses/manual"), presenterKey,
		models.ManualResponseRequest{Value: value}, &out)
	return out, err
}

// Generate calls the text-generation collaborator. A rate-limited call
// fails with models.ErrRateLimited.
func (a *API) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	var out models.GenerateResponse
	err := a.do(ctx, "generate", http.MethodPost, "/generate", "", req, &out)
	return out, err
}

// CheckAuth calls the deck password gate with a password or a cached token.
func (a *API) CheckAuth(ctx context.Context, req models.AuthCheckRequest) (models.AuthCheckResponse, error) {
	var out models.AuthCheckResponse
	err := a.do(ctx, "check auth", http.MethodPost, "/auth/check", "", req, &out)
	return out, err
}

func sessionPath(code, suffix string) string {
	return "/sessions/" + url.PathEscape(code) + suffix
}

func pollPath(pollID, suffix string) string {
	return "/polls/" + url.PathEscape(pollID) + suffix
}

func (a *API) do(ctx context.Context, op, method, path, presenterKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if presenterKey != "" {
		req.Header.Set(presenterKeyHeader, presenterKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// decodeError turns an error body into the matching sentinel. Bodies
// without a known code, and every 5xx, are transport failures.
func decodeError(op string, status int, data []byte) error {
	var body models.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return &TransportError{Op: op, Status: status, Err: errors.New(strings.TrimSpace(string(data)))}
	}

	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if status < http.StatusInternalServerError {
		if sentinel := models.ErrorFromCode(body.Code); sentinel != nil {
			return fmt.Errorf("%s: %s: %w", op, msg, sentinel)
		}
	}
	return &TransportError{Op: op, Status: status, Err: errors.New(msg)}
}
