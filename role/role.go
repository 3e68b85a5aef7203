// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package role

import (
	"net/url"
	"strings"

	"github.com/jpenzell/deck-live/auth"
)

type Role string

const (
	Presenter   Role = "presenter"
	Participant Role = "participant"
	Solo        Role = "solo"
)

// Op is a poll engine operation gated by role.
type Op string

const (
	OpCreate Op = "create"
	OpOpen   Op = "open"
	OpClose  Op = "close"
	OpToggle Op = "toggle"
	OpReset  Op = "reset"
	OpInject Op = "inject"
	OpSubmit Op = "submit"
	OpRead   Op = "read"
)

// Query parameters read by Resolve
const (
	ParamJoin = "join"
	ParamSolo = "solo"
)

// Memory is the part of the identity store Resolve reads.
// *identity.Store satisfies it.
type Memory interface {
	JoinedCode() (string, bool)
	PresenterCode() (string, bool)
	PresenterKey(code string) (string, bool)
}

type Input struct {
	Query url.Values
	// Identity may be nil, which means nothing is remembered.
	Identity Memory
	// Host is set when the user chose to start a new session.
	Host bool
}

type Resolution struct {
	Role Role
	// Code is the normalized join code the role applies to. It is empty
	// for Solo and for a Presenter that still has to create its session.
	Code string
	// PresenterKey is set when a Presenter resumes a remembered session.
	PresenterKey string
	// NewSession is set when the Presenter must call create first.
	NewSession bool
}

// Resolve picks the role for a page load. It is a pure function of its
// input:
//
//	?solo                    -> Solo
//	?join=CODE               -> Presenter if the identity holds CODE's key, else Participant
//	remembered presenter     -> Presenter
//	remembered joined code   -> Participant
//	Host                     -> Presenter of a new session
//	otherwise                -> Solo
//
// A malformed ?join value is ignored, as if it were absent.
func Resolve(in Input) Resolution {
	if in.Query != nil && in.Query.Has(ParamSolo) {
		return Resolution{Role: Solo}
	}

	if code, ok := joinParam(in.Query); ok {
		if key, held := presenterKey(in.Identity, code); held {
			return Resolution{Role: Presenter, Code: code, PresenterKey: key}
		}
		return Resolution{Role: Participant, Code: code}
	}

	if in.Identity != nil {
		if code, ok := in.Identity.PresenterCode(); ok {
			if key, held := presenterKey(in.Identity, code); held {
				return Resolution{Role: Presenter, Code: code, PresenterKey: key}
			}
		}
		if code, ok := in.Identity.JoinedCode(); ok {
			if code, err := auth.ValidateCode(code); err == nil {
				return Resolution{Role: Participant, Code: code}
			}
		}
	}

	if in.Host {
		return Resolution{Role: Presenter, NewSession: true}
	}
	return Resolution{Role: Solo}
}

// Permits reports whether r may invoke op. Presenter and Solo control
// polls; every role may submit and read.
func Permits(r Role, op Op) bool {
	switch op {
	case OpSubmit, OpRead:
		return r == Presenter || r == Participant || r == Solo
	case OpCreate, OpOpen, OpClose, OpToggle, OpReset, OpInject:
		return r == Presenter || r == Solo
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case Presenter, Participant, Solo:
		return true
	}
	return false
}

func joinParam(q url.Values) (string, bool) {
	if q == nil {
		return "", false
	}
	raw := strings.TrimSpace(q.Get(ParamJoin))
	if raw == "" {
		return "", false
	}
	code, err := auth.ValidateCode(raw)
	if err != nil {
		return "", false
	}
	return code, true
}

func presenterKey(m Memory, code string) (string, bool) {
	if m == nil {
		return "", false
	}
	key, ok := m.PresenterKey(code)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// FromPresenterKey is the server-side resolution: a valid presenter key
// for sessionID makes the caller the Presenter, anything else a
// Participant. Solo never reaches the server.
func FromPresenterKey(sessionID, presenterKey, salt string) Role {
	if presenterKey == "" {
		return Participant
	}
	if err := auth.ValidatePresenterKey(sessionID, presenterKey, salt); err != nil {
		return Participant
	}
	return Presenter
}
