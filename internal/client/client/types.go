package client

import "time"

// Link states reported by LinkStatus.
const (
	LinkWaiting       = "waiting"
	LinkNeedsApproval = "needsApproval"
)

type RegisterChallenge struct {
	ChallengeID    string `json:"challengeId"`
	RelyingPartyID string `json:"relyingPartyId"`
	Challenge      string `json:"challenge"`
	Salt           string `json:"salt"`
}

type RegisterCompletion struct {
	ChallengeID          string `json:"challengeId"`
	Username             string `json:"username"`
	PubKey               string `json:"pubKey"`
	Signature            string `json:"signature"`
	ClientChallenge      string `json:"clientChallenge"`
	ClientRelyingPartyID string `json:"clientRelyingPartyId"`
	DeviceName           string `json:"deviceName,omitempty"`
}

type LoginChallenge struct {
	ChallengeID string `json:"challengeId"`
	Challenge   string `json:"challenge"`
	Salt        string `json:"salt"`
}

type LoginCompletion struct {
	ChallengeID string `json:"challengeId"`
	Username    string `json:"username"`
	Signature   string `json:"signature"`
}

type LinkInvite struct {
	URL       string    `json:"url"`
	LinkID    string    `json:"linkId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LinkInfo struct {
	Username       string `json:"username"`
	Challenge      string `json:"challenge"`
	Salt           string `json:"salt"`
	RelyingPartyID string `json:"relyingPartyId"`
}

type LinkCompletion struct {
	Token      string `json:"token"`
	NewPubKey  string `json:"newPubKey"`
	Signature  string `json:"signature"`
	Challenge  string `json:"challenge"`
	DeviceName string `json:"deviceName,omitempty"`
}

type LinkStatus struct {
	Status string  `json:"status"`
	Device *Device `json:"device,omitempty"`
}

type Me struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PubKey    string    `json:"pubKey"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Current   bool      `json:"current,omitempty"`
}
