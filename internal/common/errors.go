// Package common defines shared constants and sentinel errors used across
// client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrStorage    = errors.New("storage error")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConfig         = errors.New("invalid configuration")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Challenge and link lifecycle errors.
	ErrInvalidOrExpired  = errors.New("invalid or expired challenge")
	ErrGone              = errors.New("link expired or invalid")
	ErrChallengeMismatch = errors.New("challenge mismatch")
	ErrMismatch          = errors.New("user mismatch")

	// Proof errors. Malformed input and failed verification are reported
	// with the same error.
	ErrInvalidProof     = errors.New("invalid proof")
	ErrBadSignature     = errors.New("bad signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNoActiveDevices  = errors.New("no active devices")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
