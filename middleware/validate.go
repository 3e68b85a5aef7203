// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/cohesivestack/valgo"
)

// Validatable is a request body with valgo rules
type Validatable interface {
	Validate() *valgo.Validation
}

// DecodeAndValidate parses the body into v and runs its rules. On failure
// it writes a 400 and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v Validatable) bool {
	if err := ParseJSONBody(r, v); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	if msg, ok := ValidationMessage(v.Validate()); !ok {
		ErrorResponse(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// ValidationMessage reports the first failing field as "field: message".
// Fields are taken in name order so the message is stable.
func ValidationMessage(val *valgo.Validation) (string, bool) {
	if val == nil || val.Valid() {
		return "", true
	}
	verr, ok := val.Error().(*valgo.Error)
	if !ok {
		return "invalid request", false
	}

	fields := verr.Errors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if msgs := fields[name].Messages(); len(msgs) > 0 {
			return fmt.Sprintf("%s: %s", name, msgs[0]), false
		}
	}
	return "invalid request", false
}
