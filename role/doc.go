// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package role resolves whether a client is the Presenter, a Participant or
running Solo, and which poll operations each role may invoke.

# Resolution

Resolve reads the page query and what the identity store remembers:

	res := role.Resolve(role.Input{
		Query:    r.URL.Query(),
		Identity: ids,
		Host:     wantsToHost,
	})

The same input always yields the same Resolution. A Presenter with
NewSession set has no session yet and should create one.

# Permissions

	role.Permits(role.Participant, role.OpToggle) // false
	role.Permits(role.Participant, role.OpSubmit) // true

The HTTP API derives the caller's role with FromPresenterKey from the
X-Presenter-Key header and checks Permits before every gated operation.
*/
package role
