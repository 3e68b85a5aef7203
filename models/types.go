// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Poll type constants
const (
	PollMultipleChoice PollType = "multiple_choice"
	PollSlider         PollType = "slider"
	PollText           PollType = "text"
)

// PollType selects how a slide renders and validates responses.
// The engine stores it but never interprets it.
type PollType string

func (t PollType) Valid() bool {
	switch t {
	case PollMultipleChoice, PollSlider, PollText:
		return true
	}
	return false
}

// Identity namespaces
const (
	SoloIDPrefix   = "solo_"
	ManualIDPrefix = "manual_"
)

// Domain types

type Session struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Poll is scoped to one slide of one session. SessionID is empty in solo mode.
type Poll struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id,omitempty"`
	SlideID   string          `json:"slide_id"`
	Type      PollType        `json:"poll_type"`
	Config    json.RawMessage `json:"config"`
	IsOpen    bool            `json:"is_open"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Response struct {
	ID            string          `json:"id"`
	PollID        string          `json:"poll_id"`
	ParticipantID string          `json:"participant_id"`
	Value         json.RawMessage `json:"value"`
	IsManual      bool            `json:"is_manual"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SessionState is everything a client needs to rebuild its view from scratch.
type SessionState struct {
	Session   Session               `json:"session"`
	Polls     []Poll                `json:"polls"`
	Responses map[string][]Response `json:"responses"` // poll_id -> responses
}

// Request types

type JoinSessionRequest struct {
	ParticipantID string `json:"participant_id"`
}

type CreatePollRequest struct {
	SlideID string          `json:"slide_id"`
	Type    PollType        `json:"poll_type"`
	Config  json.RawMessage `json:"config"`
}

type SubmitResponseRequest struct {
	ParticipantID string          `json:"participant_id"`
	Value         json.RawMessage `json:"value"`
}

type ManualResponseRequest struct {
	Value json.RawMessage `json:"value"`
}

type GenerateRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
	Model   string `json:"model,omitempty"`
}

type AuthCheckRequest struct {
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Response types

type CreateSessionResponse struct {
	Session      Session `json:"session"`
	PresenterKey string  `json:"presenter_key"`
	JoinURL      string  `json:"join_url"`
}

type ParticipantCountResponse struct {
	ParticipantCount int `json:"participant_count"`
}

type ClearResponsesResponse struct {
	Poll    Poll  `json:"poll"`
	Deleted int64 `json:"deleted"`
}

// GenerateResponse is the text-generation reply. On failure only Error
// and Success are set.
type GenerateResponse struct {
	Response string `json:"response,omitempty"`
	Model    string `json:"model,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

type AuthCheckResponse struct {
	Valid bool   `json:"valid"`
	Token string `json:"token,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
