package models

import "time"

// Session is the server-side source of truth behind a session token.
// IPAddress and UserAgent are empty when unknown at creation.
type Session struct {
	ID        string
	UserID    string
	DeviceID  string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
