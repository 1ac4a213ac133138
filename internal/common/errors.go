// Package common defines shared sentinel errors and small helpers used across
// the user directory components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Directory-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorValidation    = errors.New("validation error")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Persistence errors. File database failures wrap one of these together
	// with the underlying cause.
	ErrFileUnavailable = errors.New("file unavailable")
	ErrDecode          = errors.New("decode error")
	ErrIO              = errors.New("io error")
	ErrNotInitialized  = errors.New("database does not exist")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
