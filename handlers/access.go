// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jpenzell/deck-live/middleware"
	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/role"
)

// PresenterKeyHeader carries the key returned by POST /sessions
const PresenterKeyHeader = "X-Presenter-Key"

// requireRole writes 403 and returns false unless the caller's role for
// sessionID permits op.
func requireRole(w http.ResponseWriter, r *http.Request, salt, sessionID string, op role.Op) bool {
	caller := role.FromPresenterKey(sessionID, r.Header.Get(PresenterKeyHeader), salt)
	if !role.Permits(caller, op) {
		middleware.WriteError(w, models.ErrForbidden, "")
		return false
	}
	return true
}

// JoinURL is the participant link for code: the deck URL with ?join=CODE.
func JoinURL(publicURL, code string) string {
	u, err := url.Parse(strings.TrimRight(publicURL, "/"))
	if err != nil {
		return publicURL + "?" + role.ParamJoin + "=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set(role.ParamJoin, code)
	u.RawQuery = q.Encode()
	return u.String()
}
