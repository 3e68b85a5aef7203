// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jpenzell/deck-live/db"
	"github.com/jpenzell/deck-live/models"
)

// SQLStore persists sessions, polls and responses in PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQLStore(conn *sql.DB, dialect db.Dialect) *SQLStore {
	return &SQLStore{db: conn, dialect: dialect}
}

func (s *SQLStore) q(query string) string {
	return db.Rebind(s.dialect, query)
}

func (s *SQLStore) CreateSession(ctx context.Context, session models.Session) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO sessions (id, code, created_at)
		VALUES (?, ?, ?)
	`), session.ID, session.Code, toMillis(session.CreatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

const sessionColumns = `
	SELECT s.id, s.code, s.created_at,
	       (SELECT COUNT(*) FROM session_participants sp WHERE sp.session_id = s.id)
	FROM sessions s`

func (s *SQLStore) SessionByCode(ctx context.Context, code string) (models.Session, error) {
	return s.scanSession(s.db.QueryRowContext(ctx, s.q(sessionColumns+` WHERE s.code = ?`), code))
}

func (s *SQLStore) SessionByID(ctx context.Context, id string) (models.Session, error) {
	return s.scanSession(s.db.QueryRowContext(ctx, s.q(sessionColumns+` WHERE s.id = ?`), id))
}

func (s *SQLStore) scanSession(row *sql.Row) (models.Session, error) {
	var (
		session   models.Session
		createdAt int64
	)
	err := row.Scan(&session.ID, &session.Code, &createdAt, &session.ParticipantCount)
	if err == sql.ErrNoRows {
		return models.Session{}, models.ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	return session, nil
}

func (s *SQLStore) AddParticipant(ctx context.Context, sessionID, participantID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO session_participants (session_id, participant_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id, participant_id) DO NOTHING
	`), sessionID, participantID, toMillis(at))
	if err != nil {
		return false, fmt.Errorf("failed to register participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to register participant: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) RemoveParticipant(ctx context.Context, sessionID, participantID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM session_participants WHERE session_id = ? AND participant_id = ?
	`), sessionID, participantID)
	if err != nil {
		return false, fmt.Errorf("failed to remove participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove participant: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM session_participants WHERE session_id = ?
	`), sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

const pollColumns = `
	SELECT id, session_id, slide_id, poll_type, config, is_open, created_at, updated_at
	FROM polls`

func (s *SQLStore) CreatePollIfAbsent(ctx context.Context, p models.Poll) (models.Poll, bool, error) {
	config := string(p.Config)
	if config == "" {
		config = "{}"
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO polls (id, session_id, slide_id, poll_type, config, is_open, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, slide_id) DO NOTHING
	`), p.ID, p.SessionID, p.SlideID, string(p.Type), config, p.IsOpen, toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return models.Poll{}, false, fmt.Errorf("failed to insert poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Poll{}, false, fmt.Errorf("failed to insert poll: %w", err)
	}

	stored, err := s.PollForSlide(ctx, p.SessionID, p.SlideID)
	if err != nil {
		return models.Poll{}, false, err
	}
	return stored, n > 0, nil
}

func (s *SQLStore) Poll(ctx context.Context, id string) (models.Poll, error) {
	return scanPoll(s.db.QueryRowContext(ctx, s.q(pollColumns+` WHERE id = ?`), id))
}

func (s *SQLStore) PollForSlide(ctx context.Context, sessionID, slideID string) (models.Poll, error) {
	return scanPoll(s.db.QueryRowContext(ctx, s.q(pollColumns+` WHERE session_id = ? AND slide_id = ?`), sessionID, slideID))
}

func (s *SQLStore) Polls(ctx context.Context, sessionID string) ([]models.Poll, error) {
	rows, err := s.db.QueryContext(ctx, s.q(pollColumns+` WHERE session_id = ? ORDER BY seq`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	return polls, nil
}

func (s *SQLStore) SetPollOpen(ctx context.Context, id string, open bool, at time.Time) (models.Poll, bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE polls SET is_open = ?, updated_at = ?
		WHERE id = ? AND is_open <> ?
	`), open, toMillis(at), id, open)
	if err != nil {
		return models.Poll{}, false, fmt.Errorf("failed to update poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Poll{}, false, fmt.Errorf("failed to update poll: %w", err)
	}

	p, err := s.Poll(ctx, id)
	if err != nil {
		return models.Poll{}, false, err
	}
	return p, n > 0, nil
}

func (s *SQLStore) UpsertResponse(ctx context.Context, r models.Response) (models.Response, bool, error) {
	// The open check and the write are one statement, so a close that
	// commits first makes the insert select zero rows.
	var (
		storedID  string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO responses (id, poll_id, participant_id, value, is_manual, created_at, updated_at)
		SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT),
		       CAST(? AS BOOLEAN), CAST(? AS BIGINT), CAST(? AS BIGINT)
		WHERE EXISTS (SELECT 1 FROM polls WHERE id = ? AND is_open = ?)
		ON CONFLICT (poll_id, participant_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`), r.ID, r.PollID, r.ParticipantID, string(r.Value), r.IsManual,
		toMillis(r.CreatedAt), toMillis(r.UpdatedAt), r.PollID, true).Scan(&storedID, &createdAt)

	if err == sql.ErrNoRows {
		if _, perr := s.Poll(ctx, r.PollID); perr != nil {
			return models.Response{}, false, perr
		}
		return models.Response{}, false, models.ErrPollClosed
	}
	if err != nil {
		return models.Response{}, false, fmt.Errorf("failed to upsert response: %w", err)
	}

	inserted := storedID == r.ID
	r.ID = storedID
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(toMillis(r.UpdatedAt))
	return r, inserted, nil
}

func (s *SQLStore) InsertResponse(ctx context.Context, r models.Response) (models.Response, error) {
	if _, err := s.Poll(ctx, r.PollID); err != nil {
		return models.Response{}, err
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO responses (id, poll_id, participant_id, value, is_manual, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.PollID, r.ParticipantID, string(r.Value), r.IsManual, toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Response{}, models.ErrConflict
		}
		return models.Response{}, fmt.Errorf("failed to insert response: %w", err)
	}
	r.CreatedAt = fromMillis(toMillis(r.CreatedAt))
	r.UpdatedAt = fromMillis(toMillis(r.UpdatedAt))
	return r, nil
}

func (s *SQLStore) DeleteResponses(ctx context.Context, pollID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM responses WHERE poll_id = ?`), pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete responses: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Responses(ctx context.Context, pollID string) ([]models.Response, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, poll_id, participant_id, value, is_manual, created_at, updated_at
		FROM responses
		WHERE poll_id = ?
		ORDER BY seq
	`), pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		var (
			r                    models.Response
			value                string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&r.ID, &r.PollID, &r.ParticipantID, &value, &r.IsManual, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		r.Value = []byte(value)
		r.CreatedAt = fromMillis(createdAt)
		r.UpdatedAt = fromMillis(updatedAt)
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	return responses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPoll(row scanner) (models.Poll, error) {
	var (
		p                    models.Poll
		pollType, config     string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.SlideID, &pollType, &config, &p.IsOpen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, models.ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}
	p.Type = models.PollType(pollType)
	p.Config = []byte(config)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}
