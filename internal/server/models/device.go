package models

import "time"

type DeviceStatus string

const (
	DeviceStatusPending DeviceStatus = "PENDING"
	DeviceStatusActive  DeviceStatus = "ACTIVE"
)

// Device is one registered public key of a user. Only ACTIVE devices
// can authenticate; PENDING ones wait for owner approval.
type Device struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	PubKey    string       `db:"pub_key"`
	Name      string       `db:"name"`
	Status    DeviceStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
}
