// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/jpenzell/deck-live/models"
)

var (
	ErrInvalidPresenterKey = errors.New("invalid presenter key")
)

// CodeLength is the length of a session join code
const CodeLength = 4

// codeAlphabet leaves out 0/O, 1/I/L so codes survive being read aloud
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateJoinCode creates a random uppercase join code.
// Uniqueness is the caller's job; the keyspace is small.
func GenerateJoinCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode trims and uppercases user input
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode normalizes code and checks its format.
// Any uppercase alphanumeric is accepted on input even though
// generated codes use a narrower alphabet.
func ValidateCode(code string) (string, error) {
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return "", models.ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", models.ErrInvalidCode
		}
	}
	return code, nil
}

// GenerateParticipantID creates a networked participant identity
func GenerateParticipantID() string {
	return uuid.NewString()
}

// GenerateSoloParticipantID creates an identity in the solo namespace
func GenerateSoloParticipantID() string {
	return models.SoloIDPrefix + uuid.NewString()
}

// GenerateManualParticipantID creates an identity for a presenter-injected
// response. The prefix keeps it disjoint from real participants.
func GenerateManualParticipantID() string {
	return models.ManualIDPrefix + uuid.NewString()
}

// IsManualParticipantID reports whether id is in the manual namespace
func IsManualParticipantID(id string) bool {
	return strings.HasPrefix(id, models.ManualIDPrefix)
}

// GeneratePresenterKey creates an HMAC-based presenter key for a session
// This is deterministic and verifiable
func GeneratePresenterKey(sessionID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(sessionID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidatePresenterKey checks if the provided presenter key is valid for the session
func ValidatePresenterKey(sessionID, presenterKey, salt string) error {
	if presenterKey == "" {
		return ErrInvalidPresenterKey
	}
	expected := GeneratePresenterKey(sessionID, salt)
	if !hmac.Equal([]byte(presenterKey), []byte(expected)) {
		return ErrInvalidPresenterKey
	}
	return nil
}
