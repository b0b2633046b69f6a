// Package models defines the records the CLI keeps on disk.
package models

import "time"

// Identity is the local half of an account on this device. Seed never
// leaves the machine; together with the passphrase and the server-held
// Salt it derives the signing key.
type Identity struct {
	Username       string
	Seed           []byte
	Salt           string
	RelyingPartyID string
	DeviceID       string
	CreatedAt      time.Time
}
