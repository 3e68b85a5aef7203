// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, response and event types.

# Domain Types

  - Session: code-addressable grouping of polls and participants
  - Poll: slide-scoped question with an open/closed gate
  - Response: one participant's answer, unique per (poll, participant)
  - SessionState: full snapshot used to resynchronize a client

Poll.Config and Response.Value are opaque JSON. Their shape depends on
the poll type and is interpreted only by the slide that renders it:

	multiple_choice  {"choice": "b"}
	slider           {"slider": 42}
	text             "free text"

# Events

Event is the unit of realtime delivery:

	{"table": "responses", "action": "insert", "session_id": "...", "record": {...}}

A poll reset produces a single responses/delete event whose record is
ResponsesCleared.

# Errors

Expected outcomes are sentinels (ErrNotFound, ErrPollClosed, ErrInvalidCode,
...). ErrorCode and ErrorFromCode translate them to and from the code field
of ErrorResponse.

# Identity Namespaces

	<uuid>          networked participant
	solo_<uuid>     solo practice participant
	manual_<uuid>   presenter-injected demo response
*/
package models
