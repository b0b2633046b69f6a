package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gin-gonic/gin"
)

func (s *Server) me(c *gin.Context) {
	session := currentSession(c)

	user, err := s.accounts.Me(c.Request.Context(), session.UserID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, meResponse{ID: user.ID, Username: user.UserName, CreatedAt: user.CreatedAt})
}

func (s *Server) devices(c *gin.Context) {
	session := currentSession(c)

	devices, err := s.accounts.Devices(c.Request.Context(), session.UserID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	resp := devicesResponse{Devices: make([]deviceResponse, 0, len(devices))}
	for i := range devices {
		d := toDeviceResponse(&devices[i])
		d.Current = devices[i].ID == session.DeviceID
		resp.Devices = append(resp.Devices, *d)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) revokeDevice(c *gin.Context) {
	session := currentSession(c)

	deviceID := c.Param("id")
	if !validIDs(deviceID) {
		s.abortWithError(c, common.ErrorNotFound)
		return
	}

	if err := s.accounts.RevokeDevice(c.Request.Context(), session.UserID, deviceID); err != nil {
		s.abortWithError(c, err)
		return
	}
	if deviceID == session.DeviceID {
		s.clearSessionCookie(c)
	}
	c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) deleteAccount(c *gin.Context) {
	session := currentSession(c)

	if err := s.accounts.DeleteAccount(c.Request.Context(), session.UserID); err != nil {
		s.abortWithError(c, err)
		return
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, okResponse{OK: true})
}
