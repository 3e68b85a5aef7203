// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The statements are portable between PostgreSQL and SQLite apart from
// the seq column.
func CreateSchema(db *sql.DB, dialect Dialect) error {
	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{seq}", seqColumn(dialect))
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// seqColumn is an auto-incrementing key that records insertion order.
func seqColumn(dialect Dialect) string {
	if dialect == Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Timestamps are unix milliseconds so both drivers scan them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    created_at BIGINT NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS session_participants (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL,
    joined_at BIGINT NOT NULL,
    PRIMARY KEY (session_id, participant_id)
)`,

	// session_id is '' for solo polls
	`CREATE TABLE IF NOT EXISTS polls (
    seq {seq},
    id TEXT NOT NULL UNIQUE,
    session_id TEXT NOT NULL DEFAULT '',
    slide_id TEXT NOT NULL,
    poll_type TEXT NOT NULL CHECK (poll_type IN ('multiple_choice', 'slider', 'text')),
    config TEXT NOT NULL DEFAULT '{}',
    is_open BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (session_id, slide_id)
)`,

	`CREATE INDEX IF NOT EXISTS idx_polls_session_id ON polls(session_id)`,

	`CREATE TABLE IF NOT EXISTS responses (
    seq {seq},
    id TEXT NOT NULL UNIQUE,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL,
    value TEXT NOT NULL,
    is_manual BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (poll_id, participant_id)
)`,

	`CREATE INDEX IF NOT EXISTS idx_responses_poll_id ON responses(poll_id, seq)`,
}
