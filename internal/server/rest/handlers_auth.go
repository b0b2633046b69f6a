package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

// bind decodes the JSON body into req; failures are validation errors.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return false
	}
	return true
}

func (s *Server) registerInit(c *gin.Context) {
	var req usernameRequest
	if !s.bind(c, &req) {
		return
	}

	rc, err := s.auth.RegisterInit(c.Request.Context(), req.Username)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, registerInitResponse{
		ChallengeID:    rc.ChallengeID,
		RelyingPartyID: rc.RelyingPartyID,
		Challenge:      rc.Challenge,
		Salt:           rc.Salt,
	})
}

func (s *Server) registerComplete(c *gin.Context) {
	var req registerCompleteRequest
	if !s.bind(c, &req) {
		return
	}

	_, err := s.auth.RegisterComplete(c.Request.Context(), services.RegisterRequest{
		ChallengeID:          req.ChallengeID,
		Username:             req.Username,
		PubKey:               req.PubKey,
		Signature:            req.Signature,
		ClientChallenge:      req.ClientChallenge,
		ClientRelyingPartyID: req.ClientRelyingPartyID,
		DeviceName:           req.DeviceName,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) loginInit(c *gin.Context) {
	var req usernameRequest
	if !s.bind(c, &req) {
		return
	}

	lc, err := s.auth.LoginInit(c.Request.Context(), req.Username)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginInitResponse{
		ChallengeID: lc.ChallengeID,
		Challenge:   lc.Challenge,
		Salt:        lc.Salt,
	})
}

func (s *Server) loginComplete(c *gin.Context) {
	var req loginCompleteRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.auth.LoginComplete(c.Request.Context(), services.LoginRequest{
		ChallengeID: req.ChallengeID,
		Username:    req.Username,
		Signature:   req.Signature,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.setSessionCookie(c, res.Token)
	c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), sessionToken(c)); err != nil {
		s.abortWithError(c, err)
		return
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, okResponse{OK: true})
}
