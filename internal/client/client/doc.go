// Package client is the CLI's transport and local-storage bootstrap.
//
// Client describes the gophauth REST API as the CLI uses it; HTTPClient
// implements it with resty, carries the session token as a bearer header
// and turns non-2xx replies into *APIError values that unwrap to the
// common sentinels (ErrValidation, ErrorUnauthorized, ErrGone, ...).
// Connection failures are reported as ErrUnavailable.
//
// InitDatabase opens the local SQLite file, applies the embedded goose
// migrations and returns the metadata and identity repositories.
package client
