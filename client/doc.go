// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is the deck-side SDK for the poll layer.

# Opening a Deck

Open resolves the caller's role from the page query and the identity
store, then prepares the backend that role talks to:

	d, err := client.Open(ctx, client.Options{
		API:      client.NewAPI("https://api.example.com"),
		Identity: identity.New(identity.NewFileStorage(path)),
		Query:    url.Query(),
	})

Solo decks run the poll engine locally over an in-memory store and never
reach the network. Networked decks call the HTTP API.

# Outcomes

Both backends report the same sentinels from models: ErrNotFound,
ErrInvalidCode, ErrPollClosed, ErrEmptyValue, ErrInvalidInput,
ErrForbidden and ErrRateLimited. Network failures and 5xx replies are
*TransportError values matching ErrTransport; they are safe to retry.

# Live State

Deck.Live subscribes to the session's websocket feed and keeps a
realtime.State current, resyncing from GET /sessions/{code}/state after
every reconnect.
*/
package client
