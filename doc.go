// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the deck-live API server.

deck-live keeps a presentation deck and its audience in sync: a presenter
opens a session, participants join with a four-character code, and polls
attached to slides are opened, answered and closed live.

# Starting the Server

The server reads environment variables (and an optional .env file), then
lets CLI flags override them:

	PRESENTER_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - PRESENTER_KEY_SALT (--presenter-salt): Secret for presenter key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): Connection string; SQLite defaults to a local file
  - PUBLIC_URL (--public-url): Deck URL used in join links and QR codes
  - REDIS_URL (--redis): Enables the cross-instance relay and shared rate limit
  - CORS_ORIGINS (--cors-origins): Comma-separated deck origins; empty allows any
  - TRUST_PROXY_HEADERS (--trust-proxy): Use X-Forwarded-For behind a reverse proxy
  - LLM_BASE_URL, LLM_MODEL, LLM_TIMEOUT: Text generation backend
  - GENERATE_RATE_LIMIT, GENERATE_RATE_WINDOW: Generate quota per client
  - DECK_PASSWORD, DECK_TOKEN_SECRET: Optional deck password gate
  - POLLS_OPEN_ON_CREATE (--open-on-create): Create polls already open

# Architecture

  - identity: Participant id and remembered membership per browser
  - sessions: Session directory (create, join, leave, counts)
  - polls: Poll engine (create, toggle, open, close, reset, responses)
  - realtime: Change-event hub, websocket feed, Redis relay, client state
  - role: Role resolution and permission table
  - aggregate: Poll result summaries
  - textgen: Text generation proxy and rate limiters
  - store: Memory and SQL persistence
  - handlers, router, middleware: HTTP surface
  - client: Deck-side SDK over the HTTP API or a local solo engine
  - models, auth, db, metrics, cliparse: Shared plumbing

See package documentation for each component.
*/
package main
