// Package metadata is the CLI's local key/value store for session state.
package metadata

import "context"

// Known keys.
const (
	KeySessionToken = "session_token"
	KeyUsername     = "username"
)

type Repository interface {
	// Get returns common.ErrorNotFound for an unknown key.
	Get(ctx context.Context, key string) (string, error)
	// Put upserts every entry.
	Put(ctx context.Context, entries map[string]string) error
	// Delete removes the keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
