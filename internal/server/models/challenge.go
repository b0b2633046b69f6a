package models

import (
	"fmt"
	"time"
)

type UserRefKind string

const (
	UserRefUsername UserRefKind = "username"
	UserRefUserID   UserRefKind = "user_id"
)

// UserRef names the subject of a pending challenge: a username during
// registration, a user id during login. The two are never compared
// across kinds.
type UserRef struct {
	Kind  UserRefKind
	Value string
}

func UsernameRef(username string) UserRef {
	return UserRef{Kind: UserRefUsername, Value: username}
}

func UserIDRef(userID string) UserRef {
	return UserRef{Kind: UserRefUserID, Value: userID}
}

// Username returns the value when the ref is a username.
func (r UserRef) Username() (string, bool) {
	return r.Value, r.Kind == UserRefUsername
}

// UserID returns the value when the ref is a user id.
func (r UserRef) UserID() (string, bool) {
	return r.Value, r.Kind == UserRefUserID
}

func (r UserRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Value)
}

// ParseUserRefKind validates a kind read back from storage.
func ParseUserRefKind(s string) (UserRefKind, error) {
	switch k := UserRefKind(s); k {
	case UserRefUsername, UserRefUserID:
		return k, nil
	default:
		return "", fmt.Errorf("unknown user ref kind %q", s)
	}
}

// AuthChallenge is a single-use pending challenge.
type AuthChallenge struct {
	ID        string
	UserRef   UserRef
	Challenge string
	Salt      string
	ExpiresAt time.Time
}

func (c *AuthChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PendingChallengeView is the diagnostic listing entry.
type PendingChallengeView struct {
	ID        string    `json:"id"`
	UserRef   string    `json:"userRef"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
}
