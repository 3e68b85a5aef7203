// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the deck-live API.

# Handler Types

Each handler is a struct over the domain services it needs:

  - SessionHandler: session create, lookup, join/leave, state snapshot, QR code
  - PollHandler: per-slide polls, toggle, open/close, reset, summaries
  - ResponseHandler: participant submissions and presenter-injected responses
  - RealtimeHandler: websocket change feed for one session
  - GenerateHandler: rate-limited text generation for slide content
  - AuthHandler: optional deck password gate

Handlers are created once at start-up:

	sessionHandler := handlers.NewSessionHandler(dir, engine, cfg)

# Presenter Operations

Creating, toggling, opening, closing and resetting polls, and injecting
manual responses, require the X-Presenter-Key header returned by
POST /sessions. The key is checked against the poll's session and the
resulting role is checked with role.Permits.

# Poll Lifecycle

	POST /sessions/{code}/polls/toggle → TogglePoll (create+open, close, reopen)
	POST /polls/{id}/open              → OpenPoll
	POST /polls/{id}/close             → ClosePoll
	POST /polls/{id}/reset             → ResetPoll (deletes responses only)

Submissions to a poll that is not open fail with 409 and code poll_closed.

# Errors

Domain errors are mapped by middleware.WriteError. Error bodies always
carry a stable machine code next to the human message.
*/
package handlers
