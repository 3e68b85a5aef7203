// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

type Table string

const (
	TableSessions  Table = "sessions"
	TablePolls     Table = "polls"
	TableResponses Table = "responses"
)

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event describes one mutation of a session-scoped record.
// Record holds the new row (Session, Poll or Response) or, for a
// responses delete, a ResponsesCleared.
type Event struct {
	Table     Table           `json:"table"`
	Action    Action          `json:"action"`
	SessionID string          `json:"session_id"`
	Record    json.RawMessage `json:"record"`
	At        time.Time       `json:"at"`
}

// ResponsesCleared is the record of a bulk response delete.
type ResponsesCleared struct {
	PollID string `json:"poll_id"`
}

// NewEvent marshals record into an Event.
func NewEvent(table Table, action Action, sessionID string, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Table:     table,
		Action:    action,
		SessionID: sessionID,
		Record:    raw,
		At:        time.Now().UTC(),
	}, nil
}
