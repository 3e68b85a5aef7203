// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

// Expected, non-fatal outcomes. Every backend (SQL, memory, remote client)
// reports these same values so callers can use errors.Is uniformly.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidCode  = errors.New("invalid join code")
	ErrPollClosed   = errors.New("poll is closed")
	ErrEmptyValue   = errors.New("response value is empty")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("operation not permitted for role")
	ErrRateLimited  = errors.New("rate limited")
	ErrConflict     = errors.New("conflict")
)

// Error codes carried in ErrorResponse.Code
const (
	CodeInvalidInput = "invalid_input"
	CodeEmptyValue   = "empty_value"
	CodeInvalidCode  = "invalid_code"
	CodeNotFound     = "not_found"
	CodePollClosed   = "poll_closed"
	CodeForbidden    = "forbidden"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal"
)

// ErrorCode maps a sentinel to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return CodeInvalidCode
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrPollClosed):
		return CodePollClosed
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrEmptyValue):
		return CodeEmptyValue
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	}
	return CodeInternal
}

// ErrorFromCode is the inverse of ErrorCode. Unknown codes return nil.
func ErrorFromCode(code string) error {
	switch code {
	case CodeInvalidCode:
		return ErrInvalidCode
	case CodeNotFound:
		return ErrNotFound
	case CodePollClosed:
		return ErrPollClosed
	case CodeForbidden:
		return ErrForbidden
	case CodeRateLimited:
		return ErrRateLimited
	case CodeEmptyValue:
		return ErrEmptyValue
	case CodeInvalidInput:
		return ErrInvalidInput
	}
	return nil
}
