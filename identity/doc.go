// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity resolves the per-client participant identity.

# Identities

Each client has two tokens, created on first use and persisted:

  - ParticipantID: a UUID used for joins and networked submissions
  - SoloParticipantID: "solo_" + UUID, used only in solo mode

The two namespaces never overlap.

# Storage

Storage is any string key/value store. FileStorage writes a JSON file
atomically; MemoryStorage lasts for the life of the process.

	ids := identity.New(identity.NewFileStorage(filepath.Join(dir, "identity.json")))
	pid := ids.ParticipantID()

# Failure Handling

Store methods never return errors. If storage cannot be read or written
the value is generated and kept in memory, and a warning is logged. The
identity then survives until the Store is discarded but not across
restarts.

# Session Memory

RememberJoin and RememberPresenter persist the last session joined or
created so the role resolver can restore the role on reload.
*/
package identity
