package rest

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type usernameRequest struct {
	Username string `json:"username" binding:"required,username"`
}

type registerInitResponse struct {
	ChallengeID    string `json:"challengeId"`
	RelyingPartyID string `json:"relyingPartyId"`
	Challenge      string `json:"challenge"`
	Salt           string `json:"salt"`
}

type registerCompleteRequest struct {
	ChallengeID          string `json:"challengeId" binding:"required"`
	Username             string `json:"username" binding:"required,username"`
	PubKey               string `json:"pubKey" binding:"required"`
	Signature            string `json:"signature" binding:"required"`
	ClientChallenge      string `json:"clientChallenge" binding:"required"`
	ClientRelyingPartyID string `json:"clientRelyingPartyId" binding:"required"`
	DeviceName           string `json:"deviceName" binding:"max=128"`
}

type loginInitResponse struct {
	ChallengeID string `json:"challengeId"`
	Challenge   string `json:"challenge"`
	Salt        string `json:"salt"`
}

type loginCompleteRequest struct {
	ChallengeID string `json:"challengeId" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Signature   string `json:"signature" binding:"required"`
}

type linkInitResponse struct {
	URL       string    `json:"url"`
	LinkID    string    `json:"linkId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type linkInfoResponse struct {
	Username       string `json:"username"`
	Challenge      string `json:"challenge"`
	Salt           string `json:"salt"`
	RelyingPartyID string `json:"relyingPartyId"`
}

type linkCompleteRequest struct {
	Token      string `json:"token" binding:"required"`
	NewPubKey  string `json:"newPubKey" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
	Challenge  string `json:"challenge" binding:"required"`
	DeviceName string `json:"deviceName" binding:"max=128"`
}

type linkStatusResponse struct {
	Status string          `json:"status"`
	Device *deviceResponse `json:"device,omitempty"`
}

type linkApproveRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
	LinkID   string `json:"linkId" binding:"required"`
}

type meResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type deviceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PubKey    string    `json:"pubKey"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Current   bool      `json:"current,omitempty"`
}

type devicesResponse struct {
	Devices []deviceResponse `json:"devices"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toDeviceResponse(d *models.Device) *deviceResponse {
	return &deviceResponse{
		ID:        d.ID,
		Name:      d.Name,
		PubKey:    d.PubKey,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt,
	}
}
