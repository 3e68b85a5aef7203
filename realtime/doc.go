// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime propagates session, poll and response mutations to every
client watching a session.

# Hub

Hub is the in-process fan-out. The session directory and the poll engine
publish a models.Event after each mutation; subscribers receive it
synchronously:

	sub := hub.Subscribe(sessionID, func(e models.Event) {
		// e.Table, e.Action, e.Record
	})
	defer sub.Unsubscribe()

Unsubscribe is deterministic: after it returns the handler is not running
and will not run again. Calling Unsubscribe from inside the handler
deadlocks.

# Multiple Instances

RedisRelay implements Publisher over Redis pub/sub. Each event goes to the
local hub and to the channel "deck:session:<id>"; Run relays events from
other instances into the local hub.

# Websocket Protocol

ServeConn streams one session to a websocket. The server sends

	{"type": "ready", "session_id": "..."}

once subscribed, then

	{"type": "event", "event": {...}}

per change. Pings keep idle connections alive. A client that cannot keep
up is disconnected and expected to resync.

# Client

Client dials the websocket, reconnects with exponential backoff, and runs
a resync hook after every ready frame. Delivery is at least once and
unordered, so callers feed events into State, which is idempotent and
keeps the newest version of each record. State.Replace loads a full
snapshot from a direct query; correctness never depends on the stream
alone.
*/
package realtime
