// Package models defines server-side records persisted in the database.
package models

import "time"

type User struct {
	ID        string    `db:"id"`
	UserName  string    `db:"username"`
	Salt      string    `db:"salt"`
	CreatedAt time.Time `db:"created_at"`
}
