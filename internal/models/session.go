package models

import "time"

// Session maps an upstream-issued opaque token to a user until ExpiresAt.
type Session struct {
	ID           string
	UserID       string
	SessionToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// IsExpired reports whether the session is no longer valid at now
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
