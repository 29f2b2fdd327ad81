// Package common contains shared constants and sentinel errors used across
// the diary server components.
package common

// SessionCookieName is the default name of the HttpOnly cookie carrying the
// signed session token.
const SessionCookieName = "diary_session"

// MinPasswordLength is the shortest plaintext password accepted on
// registration and password change.
const MinPasswordLength = 6

// MaxPasswordLength bounds the plaintext accepted on registration and reset.
const MaxPasswordLength = 100
