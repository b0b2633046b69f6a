// Package services holds the CLI's application logic: key derivation,
// challenge signing and the local bookkeeping around each server call.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/identities"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/hexx"
)

// SeedSize is the length of the per-device random seed.
const SeedSize = 32

// AuthService is what the REPL drives. Every method honours ctx.
type AuthService interface {
	Register(ctx context.Context, username string, passphrase []byte, deviceName string) error
	Login(ctx context.Context, username string, passphrase []byte) error
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (string, error)
	CurrentUser(ctx context.Context) string

	Me(ctx context.Context) (*client.Me, error)
	Devices(ctx context.Context) ([]client.Device, error)
	RevokeDevice(ctx context.Context, deviceID string) error
	DeleteAccount(ctx context.Context) error

	StartLink(ctx context.Context) (*client.LinkInvite, error)
	LinkStatus(ctx context.Context, linkID string) (*client.LinkStatus, error)
	Approve(ctx context.Context, deviceID, linkID string) error
	Join(ctx context.Context, tokenOrURL string, passphrase []byte, deviceName string) (*models.Identity, error)

	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	now    func() time.Time
}

func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db, now: time.Now}
}

func (a *authService) identities(db dbx.DBTX) identities.Repository {
	return identities.NewSQLiteRepository(db)
}

func (a *authService) metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// deriveKey rebuilds the device key from the local seed, the passphrase
// and the account salt issued by the server.
func deriveKey(seed, passphrase []byte, saltHex string) (*cryptox.SigningKey, error) {
	salt, err := hexx.Decode(saltHex)
	if err != nil {
		return nil, fmt.Errorf("server sent a bad salt: %w", err)
	}
	secret := make([]byte, 0, len(seed)+len(passphrase))
	secret = append(secret, seed...)
	secret = append(secret, passphrase...)
	defer clear(secret)

	return cryptox.DeriveSigningKey(secret, salt)
}

// Register creates the account with a fresh device seed. The seed is only
// stored once the server has accepted the registration.
func (a *authService) Register(ctx context.Context, username string, passphrase []byte, deviceName string) error {
	if _, err := a.identities(a.db).Get(ctx, username); err == nil {
		return fmt.Errorf("%w: %s already has a key on this device", common.ErrConflict, username)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: %v", client.ErrLocalDataNotAvailable, err)
	}

	rc, err := a.client.RegisterInit(ctx, username)
	if err != nil {
		return fmt.Errorf("register init: %w", err)
	}

	seed := common.RandomBytes(SeedSize)
	key, err := deriveKey(seed, passphrase, rc.Salt)
	if err != nil {
		return err
	}
	defer key.Zero()

	sig, err := key.Sign(cryptox.RegistrationMessage(rc.Challenge, rc.RelyingPartyID))
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	err = a.client.RegisterComplete(ctx, client.RegisterCompletion{
		ChallengeID:          rc.ChallengeID,
		Username:             username,
		PubKey:               key.PublicKeyHex(),
		Signature:            sig,
		ClientChallenge:      rc.Challenge,
		ClientRelyingPartyID: rc.RelyingPartyID,
		DeviceName:           deviceName,
	})
	if err != nil {
		return fmt.Errorf("register complete: %w", err)
	}

	return a.identities(a.db).Save(ctx, &models.Identity{
		Username:       username,
		Seed:           seed,
		Salt:           rc.Salt,
		RelyingPartyID: rc.RelyingPartyID,
		CreatedAt:      a.now(),
	})
}

// Login signs a fresh login challenge with the key of this device and
// keeps the resulting session token for later runs.
func (a *authService) Login(ctx context.Context, username string, passphrase []byte) error {
	id, err := a.identities(a.db).Get(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return client.ErrLocalDataNotAvailable
	}
	if err != nil {
		return fmt.Errorf("%w: %v", client.ErrLocalDataNotAvailable, err)
	}

	lc, err := a.client.LoginInit(ctx, username)
	if err != nil {
		return fmt.Errorf("login init: %w", err)
	}

	key, err := deriveKey(id.Seed, passphrase, lc.Salt)
	if err != nil {
		return err
	}
	defer key.Zero()

	sig, err := key.Sign(cryptox.LoginMessage(lc.Challenge, id.RelyingPartyID))
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	token, err := a.client.LoginComplete(ctx, client.LoginCompletion{
		ChallengeID: lc.ChallengeID,
		Username:    username,
		Signature:   sig,
	})
	if err != nil {
		return fmt.Errorf("login complete: %w", err)
	}

	return dbx.WithTx(ctx, a.db, func(ctx context.Context, tx dbx.DBTX) error {
		return a.metadata(tx).Put(ctx, map[string]string{
			metadata.KeySessionToken: token,
			metadata.KeyUsername:     username,
		})
	})
}

// Restore loads a saved session token into the client and returns the
// username it belongs to, or "" when there is none.
func (a *authService) Restore(ctx context.Context) (string, error) {
	md := a.metadata(a.db)

	token, err := md.Get(ctx, metadata.KeySessionToken)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	a.client.SetToken(token)

	username, err := md.Get(ctx, metadata.KeyUsername)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	return username, nil
}

func (a *authService) CurrentUser(ctx context.Context) string {
	if a.client.Token() == "" {
		return ""
	}
	username, err := a.metadata(a.db).Get(ctx, metadata.KeyUsername)
	if err != nil {
		return ""
	}
	return username
}

func (a *authService) forgetSession(ctx context.Context) error {
	a.client.SetToken("")
	return a.metadata(a.db).Delete(ctx, metadata.KeySessionToken)
}

// Logout ends the server session. The local token is dropped even when
// the server is unreachable.
func (a *authService) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if ferr := a.forgetSession(ctx); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func (a *authService) Me(ctx context.Context) (*client.Me, error) {
	return a.client.Me(ctx)
}

func (a *authService) Devices(ctx context.Context) ([]client.Device, error) {
	return a.client.Devices(ctx)
}

// RevokeDevice removes a device from the account. Revoking the device
// this CLI runs as ends the local session too.
func (a *authService) RevokeDevice(ctx context.Context, deviceID string) error {
	devices, err := a.client.Devices(ctx)
	if err != nil {
		return err
	}
	current := false
	for _, d := range devices {
		if d.ID == deviceID && d.Current {
			current = true
		}
	}

	if err := a.client.RevokeDevice(ctx, deviceID); err != nil {
		return err
	}
	if current {
		return a.forgetSession(ctx)
	}
	return nil
}

// DeleteAccount removes the account on the server and every local trace
// of it.
func (a *authService) DeleteAccount(ctx context.Context) error {
	username := a.CurrentUser(ctx)

	if err := a.client.DeleteAccount(ctx); err != nil {
		return err
	}

	return dbx.WithTx(ctx, a.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := a.metadata(tx).Delete(ctx, metadata.KeySessionToken, metadata.KeyUsername); err != nil {
			return err
		}
		if username == "" {
			return nil
		}
		return a.identities(tx).Delete(ctx, username)
	})
}

func (a *authService) StartLink(ctx context.Context) (*client.LinkInvite, error) {
	return a.client.LinkInit(ctx)
}

func (a *authService) LinkStatus(ctx context.Context, linkID string) (*client.LinkStatus, error) {
	return a.client.LinkStatus(ctx, linkID)
}

func (a *authService) Approve(ctx context.Context, deviceID, linkID string) error {
	return a.client.LinkApprove(ctx, deviceID, linkID)
}

// LinkToken accepts either a bare token or a link URL carrying ?token=.
func LinkToken(tokenOrURL string) (string, error) {
	s := strings.TrimSpace(tokenOrURL)
	if s == "" {
		return "", common.ErrValidation
	}
	if !strings.Contains(s, "://") {
		return s, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		return "", fmt.Errorf("%w: link has no token", common.ErrValidation)
	}
	return token, nil
}

// Join binds this machine to an existing account as a new, pending
// device. The owner still has to approve it from a logged-in device.
func (a *authService) Join(ctx context.Context, tokenOrURL string, passphrase []byte, deviceName string) (*models.Identity, error) {
	token, err := LinkToken(tokenOrURL)
	if err != nil {
		return nil, err
	}

	info, err := a.client.LinkInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("link info: %w", err)
	}

	if _, err := a.identities(a.db).Get(ctx, info.Username); err == nil {
		return nil, fmt.Errorf("%w: %s already has a key on this device", common.ErrConflict, info.Username)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: %v", client.ErrLocalDataNotAvailable, err)
	}

	seed := common.RandomBytes(SeedSize)
	key, err := deriveKey(seed, passphrase, info.Salt)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	sig, err := key.Sign(cryptox.LinkMessage(info.Challenge, token))
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	deviceID, err := a.client.LinkComplete(ctx, client.LinkCompletion{
		Token:      token,
		NewPubKey:  key.PublicKeyHex(),
		Signature:  sig,
		Challenge:  info.Challenge,
		DeviceName: deviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("link complete: %w", err)
	}

	id := &models.Identity{
		Username:       info.Username,
		Seed:           seed,
		Salt:           info.Salt,
		RelyingPartyID: info.RelyingPartyID,
		DeviceID:       deviceID,
		CreatedAt:      a.now(),
	}
	if err := a.identities(a.db).Save(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
