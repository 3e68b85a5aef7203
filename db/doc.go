// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and schema creation.

# Connections

Open selects the driver by dialect and pings the database:

	conn, err := db.Open(db.SQLite, "deck.db")
	conn, err := db.Open(db.Postgres, "postgres://...")

SQLite connections are limited to one open connection and have foreign
keys enabled.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn, dialect); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - sessions: join code and creation time
  - session_participants: distinct participant identities per session
  - polls: one row per (session, slide), with opaque config and open flag
  - responses: one row per (poll, participant), with opaque value

# Relationships

	sessions 1──* session_participants
	polls    1──* responses

Solo polls use an empty session_id and have no session row.

# Placeholders

Queries are written with ? placeholders and passed through Rebind, which
rewrites them to $1, $2, ... for PostgreSQL.

# Constraint Errors

IsUniqueViolation recognizes unique violations from lib/pq (SQLSTATE 23505)
and modernc sqlite (SQLITE_CONSTRAINT_UNIQUE / PRIMARYKEY).
*/
package db
