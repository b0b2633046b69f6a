package common

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// ServiceName is reported by health endpoints.
const ServiceName = "gophauth"
