package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

const testRP = "localhost"

type fakeDevice struct {
	id      string
	pubKey  string
	name    string
	pending bool
}

type fakeUser struct {
	salt    string
	devices []*fakeDevice
}

type fakeChallenge struct {
	value string
	salt  string
}

type fakeLink struct {
	username  string
	challenge string
	deviceID  string
}

// fakeServer implements client.Client in memory and checks every
// signature with the real verifier.
type fakeServer struct {
	mu         sync.Mutex
	verifier   cryptox.Verifier
	users      map[string]*fakeUser
	challenges map[string]fakeChallenge
	links      map[string]*fakeLink
	sessions   map[string]string
	token      string
	seq        int

	// device id the current session belongs to
	sessionDevice map[string]string
	down          bool
}

var _ client.Client = (*fakeServer)(nil)

func newFakeServer() *fakeServer {
	return &fakeServer{
		verifier:      cryptox.SchnorrVerifier{},
		users:         map[string]*fakeUser{},
		challenges:    map[string]fakeChallenge{},
		links:         map[string]*fakeLink{},
		sessions:      map[string]string{},
		sessionDevice: map[string]string{},
	}
}

func (f *fakeServer) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeServer) hexValue() string {
	f.seq++
	return fmt.Sprintf("%064x", f.seq)
}

func (f *fakeServer) session() (string, error) {
	if f.down {
		return "", client.ErrUnavailable
	}
	u, ok := f.sessions[f.token]
	if !ok {
		return "", common.ErrorUnauthorized
	}
	return u, nil
}

func (f *fakeServer) Ping(context.Context) error {
	if f.down {
		return client.ErrUnavailable
	}
	return nil
}

func (f *fakeServer) RegisterInit(_ context.Context, username string) (*client.RegisterChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, client.ErrUnavailable
	}
	id, ch, salt := f.next("rc"), f.hexValue(), f.hexValue()[32:]
	f.challenges[id] = fakeChallenge{value: ch, salt: salt}
	return &client.RegisterChallenge{ChallengeID: id, RelyingPartyID: testRP, Challenge: ch, Salt: salt}, nil
}

func (f *fakeServer) RegisterComplete(_ context.Context, req client.RegisterCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.challenges[req.ChallengeID]
	delete(f.challenges, req.ChallengeID)
	if !ok || ch.value != req.ClientChallenge || req.ClientRelyingPartyID != testRP {
		return common.ErrInvalidOrExpired
	}
	if !f.verifier.Verify(req.PubKey, cryptox.RegistrationMessage(ch.value, testRP), req.Signature) {
		return common.ErrInvalidProof
	}
	if _, exists := f.users[req.Username]; exists {
		return common.ErrConflict
	}
	f.users[req.Username] = &fakeUser{salt: ch.salt, devices: []*fakeDevice{{id: f.next("dev"), pubKey: req.PubKey, name: req.DeviceName}}}
	return nil
}

func (f *fakeServer) LoginInit(_ context.Context, username string) (*client.LoginChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	id, ch := f.next("lc"), f.hexValue()
	f.challenges[id] = fakeChallenge{value: ch}
	return &client.LoginChallenge{ChallengeID: id, Challenge: ch, Salt: u.salt}, nil
}

func (f *fakeServer) LoginComplete(_ context.Context, req client.LoginCompletion) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.challenges[req.ChallengeID]
	delete(f.challenges, req.ChallengeID)
	u, known := f.users[req.Username]
	if !ok || !known {
		return "", common.ErrInvalidOrExpired
	}
	for _, d := range u.devices {
		if d.pending {
			continue
		}
		if f.verifier.Verify(d.pubKey, cryptox.LoginMessage(ch.value, testRP), req.Signature) {
			token := f.next("tok")
			f.sessions[token] = req.Username
			f.sessionDevice[token] = d.id
			f.token = token
			return token, nil
		}
	}
	return "", common.ErrorUnauthorized
}

func (f *fakeServer) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return client.ErrUnavailable
	}
	delete(f.sessions, f.token)
	f.token = ""
	return nil
}

func (f *fakeServer) Me(context.Context) (*client.Me, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.session()
	if err != nil {
		return nil, err
	}
	return &client.Me{ID: "id-" + u, Username: u}, nil
}

func (f *fakeServer) Devices(context.Context) ([]client.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.session()
	if err != nil {
		return nil, err
	}
	var out []client.Device
	for _, d := range f.users[u].devices {
		status := "active"
		if d.pending {
			status = "pending"
		}
		out = append(out, client.Device{ID: d.id, Name: d.name, PubKey: d.pubKey, Status: status, Current: d.id == f.sessionDevice[f.token]})
	}
	return out, nil
}

func (f *fakeServer) RevokeDevice(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.session()
	if err != nil {
		return err
	}
	user := f.users[u]
	for i, d := range user.devices {
		if d.id == deviceID {
			user.devices = append(user.devices[:i], user.devices[i+1:]...)
			for tok, dev := range f.sessionDevice {
				if dev == deviceID {
					delete(f.sessions, tok)
				}
			}
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeServer) DeleteAccount(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.session()
	if err != nil {
		return err
	}
	delete(f.users, u)
	delete(f.sessions, f.token)
	f.token = ""
	return nil
}

func (f *fakeServer) LinkInit(context.Context) (*client.LinkInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.session()
	if err != nil {
		return nil, err
	}
	token := f.next("lt")
	f.links[token] = &fakeLink{username: u}
	return &client.LinkInvite{URL: "http://localhost:5173/connect-device?token=" + token, LinkID: token}, nil
}

func (f *fakeServer) LinkInfo(_ context.Context, token string) (*client.LinkInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[token]
	if !ok {
		return nil, common.ErrGone
	}
	l.challenge = f.hexValue()
	return &client.LinkInfo{Username: l.username, Challenge: l.challenge, Salt: f.users[l.username].salt, RelyingPartyID: testRP}, nil
}

func (f *fakeServer) LinkComplete(_ context.Context, req client.LinkCompletion) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[req.Token]
	if !ok {
		return "", common.ErrGone
	}
	if req.Challenge != l.challenge {
		return "", common.ErrValidation
	}
	if !f.verifier.Verify(req.NewPubKey, cryptox.LinkMessage(l.challenge, req.Token), req.Signature) {
		return "", common.ErrValidation
	}
	d := &fakeDevice{id: f.next("dev"), pubKey: req.NewPubKey, name: req.DeviceName, pending: true}
	u := f.users[l.username]
	u.devices = append(u.devices, d)
	l.deviceID = d.id
	return d.id, nil
}

func (f *fakeServer) LinkStatus(_ context.Context, linkID string) (*client.LinkStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.session(); err != nil {
		return nil, err
	}
	l, ok := f.links[linkID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if l.deviceID == "" {
		return &client.LinkStatus{Status: client.LinkWaiting}, nil
	}
	return &client.LinkStatus{Status: client.LinkNeedsApproval, Device: &client.Device{ID: l.deviceID, Status: "pending"}}, nil
}

func (f *fakeServer) LinkApprove(_ context.Context, deviceID, linkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.session()
	if err != nil {
		return err
	}
	l, ok := f.links[linkID]
	if !ok || l.deviceID != deviceID || l.username != u {
		return common.ErrForbidden
	}
	for _, d := range f.users[u].devices {
		if d.id == deviceID {
			d.pending = false
		}
	}
	delete(f.links, linkID)
	return nil
}

func (f *fakeServer) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeServer) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}
