package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gin-gonic/gin"
)

// errorStatus maps sentinel errors to HTTP statuses. The first match
// wins; the sentinel's own text is the response message.
var errorStatus = []struct {
	err    error
	status int
}{
	{common.ErrValidation, http.StatusBadRequest},
	{common.ErrInvalidOrExpired, http.StatusBadRequest},
	{common.ErrInvalidProof, http.StatusBadRequest},
	{common.ErrChallengeMismatch, http.StatusBadRequest},
	{common.ErrInvalidSignature, http.StatusBadRequest},
	{common.ErrMismatch, http.StatusBadRequest},
	{common.ErrNoActiveDevices, http.StatusBadRequest},
	{common.ErrBadSignature, http.StatusUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrForbidden, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrConflict, http.StatusConflict},
	{common.ErrGone, http.StatusGone},
}

const internalErrorMessage = "internal error"

// statusFor returns the status and client-facing message for err.
// Anything unrecognised is a 500 with a generic message.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, internalErrorMessage
}

// abortWithError writes the mapped error response. Server errors are
// logged with full detail, which never reaches the client.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
