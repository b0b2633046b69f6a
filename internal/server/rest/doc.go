// Package rest exposes the authentication services over HTTP using gin.
//
// Routes live under /api. Authenticated routes read the session token
// from the session cookie (or an Authorization: Bearer header), verify it
// and compare the request's IP and user agent with the ones recorded on
// the session.
package rest
