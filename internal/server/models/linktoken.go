package models

import "time"

// LinkToken authorises one new device to join UserID's account.
// Token is the shared secret; ID is what the owner polls with.
// Challenge stays empty until the new device fetches link info.
type LinkToken struct {
	ID        string
	Token     string
	UserID    string
	Challenge string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (l *LinkToken) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
