// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package sessions implements the session directory: join codes, lookup and
participant registration.

# Join Codes

Codes are 4 characters from an alphabet without look-alike glyphs. The
keyspace is small, so Create re-rolls on collision, up to MaxCodeAttempts,
and returns ErrCodeSpaceExhausted if every attempt collides.

Input codes are trimmed and uppercased. A code with the wrong length or
characters fails with models.ErrInvalidCode before any lookup; an unknown
code fails with models.ErrNotFound. Store failures are wrapped and match
neither.

# Participants

Join registers the caller's participant id once per session. Repeated
joins with the same identity return the session without changing its
count. Every join or leave that changes the count publishes a
sessions/update event carrying the new count.
*/
package sessions
