// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadDotEnv reads .env files, then ParseFlags returns a validated Config:

	if err := cliparse.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseType: sqlite (default) or postgres
  - DatabaseURL: connection string (required for postgres, default deck.db for sqlite)
  - PresenterKeySalt: Secret for presenter key HMAC (required)
  - PublicURL: base URL of the deck for join links and QR codes
  - RedisURL: enables the realtime relay and shared rate limiter
  - LLMBaseURL, LLMModel, LLMTimeout: text generation upstream
  - GenerateRateLimit, GenerateRateWindow: per-client generate limit (default 10/1m)
  - DeckPassword, DeckTokenSecret: password gate
  - PollsOpenOnCreate: initial poll openness policy (default closed)

# Precedence

Environment variables are parsed first (caarlos0/env struct tags), and CLI
flags override them:

	PORT                 → -p
	DATABASE_URL         → -d
	DATABASE_TYPE        → -t
	PUBLIC_URL           → -public-url
	REDIS_URL            → -redis
	LLM_BASE_URL         → -llm-url
	LLM_MODEL            → -llm-model
	GENERATE_RATE_LIMIT  → -generate-limit
	POLLS_OPEN_ON_CREATE → -open-on-create
	PRESENTER_KEY_SALT   → -presenter-salt
	DECK_PASSWORD        → -password
	DECK_TOKEN_SECRET    → -token-secret

# Validation

ParseFlags calls Validate, which returns an error when:

  - the port is out of range
  - DATABASE_TYPE is unknown, or postgres is selected without DATABASE_URL
  - PRESENTER_KEY_SALT is missing
  - DECK_PASSWORD is set without DECK_TOKEN_SECRET
  - the generate rate limit or window is not positive
  - PUBLIC_URL is not http(s)
*/
package cliparse
