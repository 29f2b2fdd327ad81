// Package common defines shared constants and sentinel errors used across
// the repository, service and transport layers. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps every failure reported by the persistence layer.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Registration / password errors, surfaced verbatim to the caller.
	ErrUsernameTaken        = errors.New("username is already taken")
	ErrWeakPassword         = errors.New("password must be at least 6 characters long")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrUserNotFound         = errors.New("user not found")
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")

	// Deliberately undifferentiated: wrong username and wrong password look the same.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Deliberately undifferentiated: missing and not-owned entries look the same.
	ErrNotFoundOrForbidden = errors.New("diary not found or you don't have permission to access it")

	// Access gateway errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSessionInvalid  = errors.New("session is no longer valid")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrExportDisabled = errors.New("export disabled")
)
