package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Verification-code rejections. Handlers collapse all of these into one
	// generic "invalid or expired code" response so callers get no oracle
	// for which check failed.
	ErrCodeExpired  = errors.New("code expired")
	ErrCodeMismatch = errors.New("code mismatch")

	// Account-lifecycle rejections.
	ErrAlreadyPending = errors.New("deletion already pending")
	ErrNotPending     = errors.New("no deletion pending")
	ErrWindowExpired  = errors.New("recovery window expired")

	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable marks a data-store round-trip failure. Callers may
	// retry; it is never swallowed.
	ErrUnavailable = errors.New("store unavailable")
)
