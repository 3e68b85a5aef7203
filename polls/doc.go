// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package polls implements the per-slide poll engine.

# State Machine

Each (session, slide) pair has at most one poll:

	UNCREATED --Create--> CLOSED <--Open/Close--> OPEN
	CLOSED --ClearResponses--> CLOSED (responses removed)

Create returns the existing poll when one exists. Its initial openness is
a policy set with WithOpenOnCreate (closed by default). Open and Close are
idempotent and publish nothing when the state does not change.

Toggle composes the primitives: no poll means Create then Open, an open
poll is closed, a closed poll is reopened.

# Responses

Submit upserts by (poll, participant): a second submission overwrites the
value of the first. The open check and the write are one store
operation, so a poll closing between page load and submit yields
models.ErrPollClosed and writes nothing. Empty values fail with
models.ErrEmptyValue.

SubmitManual injects a presenter response under a generated "manual_"
identity. Real participants cannot submit with that prefix, so the two
never overwrite each other.

# Values

Config and value payloads are opaque JSON. The engine checks they are
well-formed and non-empty and never looks inside; statistics live in the
aggregate package.

# Solo Scope

An empty session id is the solo scope. Solo polls behave the same but
publish no events.
*/
package polls
