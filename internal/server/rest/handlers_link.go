package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// validIDs reports whether every id is a UUID. Row ids are UUIDs, so
// anything else cannot name a row.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return false
		}
	}
	return true
}

func (s *Server) linkInit(c *gin.Context) {
	session := currentSession(c)

	invite, err := s.links.InitLink(c.Request.Context(), session.UserID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkInitResponse{
		URL:       invite.URL,
		LinkID:    invite.LinkID,
		ExpiresAt: invite.ExpiresAt,
	})
}

func (s *Server) linkInfo(c *gin.Context) {
	info, err := s.links.GetLinkInfo(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkInfoResponse{
		Username:       info.Username,
		Challenge:      info.Challenge,
		Salt:           info.Salt,
		RelyingPartyID: info.RelyingPartyID,
	})
}

func (s *Server) linkComplete(c *gin.Context) {
	var req linkCompleteRequest
	if !s.bind(c, &req) {
		return
	}

	device, err := s.links.CompleteLink(c.Request.Context(), services.CompleteLinkRequest{
		Token:      req.Token,
		NewPubKey:  req.NewPubKey,
		Signature:  req.Signature,
		Challenge:  req.Challenge,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deviceId": device.ID})
}

func (s *Server) linkStatus(c *gin.Context) {
	session := currentSession(c)

	linkID := c.Param("linkId")
	if !validIDs(linkID) {
		s.abortWithError(c, common.ErrorNotFound)
		return
	}

	status, err := s.links.CheckLinkStatus(c.Request.Context(), linkID, session.UserID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	resp := linkStatusResponse{Status: status.Status}
	if status.Device != nil {
		resp.Device = toDeviceResponse(status.Device)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) linkApprove(c *gin.Context) {
	session := currentSession(c)

	var req linkApproveRequest
	if !s.bind(c, &req) {
		return
	}
	if !validIDs(req.DeviceID, req.LinkID) {
		s.abortWithError(c, common.ErrorNotFound)
		return
	}

	if err := s.links.ApproveDevice(c.Request.Context(), req.DeviceID, req.LinkID, session.UserID); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse{OK: true})
}
