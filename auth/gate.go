// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DeckTokenExpiry bounds how long a cached gate token skips the password prompt
const DeckTokenExpiry = 12 * time.Hour

const deckTokenSubject = "deck"

var ErrInvalidDeckToken = errors.New("invalid deck token")

// CheckPassword compares candidate against the configured password in
// constant time. Both sides are hashed first so the comparison does not
// leak the password length.
func CheckPassword(candidate, password string) bool {
	if password == "" {
		return false
	}
	a := sha256.Sum256([]byte(candidate))
	b := sha256.Sum256([]byte(password))
	return hmac.Equal(a[:], b[:])
}

// IssueDeckToken creates the opaque token a client caches after a
// successful password check
func IssueDeckToken(secret string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   deckTokenSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(DeckTokenExpiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyDeckToken checks signature, subject and expiry
func VerifyDeckToken(tokenString, secret string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithSubject(deckTokenSubject), jwt.WithExpirationRequired())
	if err != nil {
		return ErrInvalidDeckToken
	}
	if !token.Valid {
		return ErrInvalidDeckToken
	}
	return nil
}
