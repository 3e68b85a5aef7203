// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides codes, identities, keys and the deck password gate.

# Join Codes

Join codes are 4 characters drawn from an alphabet without look-alike
characters:

	code, err := auth.GenerateJoinCode()  // e.g. "K7QX"

Input is accepted case-insensitively and normalized before lookup:

	code, err := auth.ValidateCode(" k7qx ")  // "K7QX", nil

ValidateCode returns models.ErrInvalidCode for anything that is not exactly
four alphanumerics, so malformed codes never reach the store.

# Presenter Keys

Presenter keys use HMAC-SHA256 to create deterministic, verifiable keys:

	key := auth.GeneratePresenterKey(sessionID, salt)
	err := auth.ValidatePresenterKey(sessionID, key, salt)

Since the key is derived from the session ID, nothing needs to be stored
to validate it. Whoever holds the key acts as presenter.

# Participant Identities

	auth.GenerateParticipantID()        // networked, uuid
	auth.GenerateSoloParticipantID()    // solo_<uuid>
	auth.GenerateManualParticipantID()  // manual_<uuid>

# Password Gate

CheckPassword compares SHA-256 digests with hmac.Equal. On success the
caller hands out a deck token (HS256 JWT, 12h):

	token, err := auth.IssueDeckToken(secret, time.Now())
	err = auth.VerifyDeckToken(token, secret)

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
