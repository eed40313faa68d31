// Package common defines shared constants and sentinel errors used across
// filekeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal  = errors.New("internal error")
	ErrorForbidden = errors.New("forbidden")

	// Validation errors (empty arguments, bad names, oversized input).
	ErrorValidation = errors.New("validation error")

	// Link errors.
	ErrorMalformedLink = errors.New("malformed link")

	// Password challenge errors.
	ErrNoChallenge       = errors.New("no pending password challenge")
	ErrWrongPassword     = errors.New("wrong password")
	ErrNoLongerProtected = errors.New("folder is no longer password protected")
)
