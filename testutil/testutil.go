// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/db"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/store"
)

// TestDBURL opens a private in-memory sqlite database per call
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.SQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// SetupTestStore returns a SQL store over a fresh test database
func SetupTestStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewSQLStore(SetupTestDB(t), db.SQLite)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3318,
		DatabaseType:       string(db.SQLite),
		DatabaseURL:        TestDBURL,
		PresenterKeySalt:   "test-presenter-salt",
		PublicURL:          "https://deck.example.com",
		LLMModel:           "test-model",
		LLMTimeout:         5 * time.Second,
		GenerateRateLimit:  10,
		GenerateRateWindow: time.Minute,
	}
}

// CreateTestSession stores a session with the given code and returns it
func CreateTestSession(t *testing.T, s store.Store, code string) models.Session {
	t.Helper()

	id, err := auth.GenerateID(16)
	if err != nil {
		t.Fatalf("Failed to generate session id: %v", err)
	}
	session := models.Session{
		ID:        id,
		Code:      code,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return session
}

// PresenterHeaders returns the header that authorizes presenter calls for sessionID
func PresenterHeaders(cfg cliparse.Config, sessionID string) map[string]string {
	return map[string]string{
		"X-Presenter-Key": auth.GeneratePresenterKey(sessionID, cfg.PresenterKeySalt),
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
