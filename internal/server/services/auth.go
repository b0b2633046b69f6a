package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	saltBytes         = 32
	primaryDeviceName = "Primary device"

	flowRegister = "register"
	flowLogin    = "login"
)

// RegisterChallenge is returned by RegisterInit.
type RegisterChallenge struct {
	ChallengeID    string
	RelyingPartyID string
	Challenge      string
	Salt           string
}

// RegisterRequest carries the client's proof for RegisterComplete.
// ClientChallenge and ClientRelyingPartyID echo what the client signed.
type RegisterRequest struct {
	ChallengeID          string
	Username             string
	PubKey               string
	Signature            string
	ClientChallenge      string
	ClientRelyingPartyID string
	DeviceName           string
}

// LoginChallenge is returned by LoginInit.
type LoginChallenge struct {
	ChallengeID string
	Challenge   string
	Salt        string
}

type LoginRequest struct {
	ChallengeID string
	Username    string
	Signature   string
	IPAddress   string
	UserAgent   string
}

// LoginResult carries the minted session and its token.
type LoginResult struct {
	Token    string
	Session  *models.Session
	User     *models.User
	DeviceID string
}

// AuthService runs the register and login flows.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	challenges  *ChallengeService
	sessions    *SessionService
	verifier    cryptox.Verifier
	rpID        string
	metrics     metrics.Recorder
	logger      logging.Logger
	now         func() time.Time
}

func NewAuthService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	challenges *ChallengeService,
	sessions *SessionService,
	verifier cryptox.Verifier,
	rpID string,
	rec metrics.Recorder,
	logger logging.Logger,
) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		challenges:  challenges,
		sessions:    sessions,
		verifier:    verifier,
		rpID:        rpID,
		metrics:     rec,
		logger:      logger.With("module", "auth_service"),
		now:         time.Now,
	}
}

// RegisterInit issues a registration challenge bound to username.
func (s *AuthService) RegisterInit(ctx context.Context, username string) (*RegisterChallenge, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	_, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrConflict
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	salt, err := common.RandomHex(saltBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	c, err := s.challenges.Create(ctx, models.UsernameRef(username), salt)
	if err != nil {
		return nil, err
	}
	s.metrics.ChallengeIssued(flowRegister)

	return &RegisterChallenge{
		ChallengeID:    c.ID,
		RelyingPartyID: s.rpID,
		Challenge:      c.Challenge,
		Salt:           salt,
	}, nil
}

// RegisterComplete consumes the challenge, checks the proof and creates
// the user with one ACTIVE device.
func (s *AuthService) RegisterComplete(ctx context.Context, req RegisterRequest) (*models.User, error) {
	user, err := s.registerComplete(ctx, req)
	s.metrics.AuthAttempt(flowRegister, outcome(err))
	return user, err
}

func (s *AuthService) registerComplete(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}

	c, err := s.challenges.Consume(ctx, req.ChallengeID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpired
		}
		return nil, err
	}

	if name, ok := c.UserRef.Username(); !ok || name != req.Username {
		return nil, common.ErrInvalidOrExpired
	}
	if req.ClientChallenge != c.Challenge || req.ClientRelyingPartyID != s.rpID {
		return nil, common.ErrInvalidOrExpired
	}

	if !s.verifier.Verify(req.PubKey, cryptox.RegistrationMessage(c.Challenge, s.rpID), req.Signature) {
		s.logger.Warn(ctx, "registration proof rejected", "username", req.Username)
		return nil, common.ErrInvalidProof
	}

	now := s.now()
	user := &models.User{
		ID:        uuid.NewString(),
		UserName:  req.Username,
		Salt:      c.Salt,
		CreatedAt: now,
	}
	name := req.DeviceName
	if name == "" {
		name = primaryDeviceName
	}
	device := &models.Device{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		PubKey:    cryptox.NormalizePubKey(req.PubKey),
		Name:      name,
		Status:    models.DeviceStatusActive,
		CreatedAt: now,
	}

	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.repomanager.Devices(tx).Create(ctx, device)
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "device_id", device.ID)
	return user, nil
}

// LoginInit issues a login challenge bound to the user's id.
func (s *AuthService) LoginInit(ctx context.Context, username string) (*LoginChallenge, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	c, err := s.challenges.Create(ctx, models.UserIDRef(user.ID), "")
	if err != nil {
		return nil, err
	}
	s.metrics.ChallengeIssued(flowLogin)

	return &LoginChallenge{ChallengeID: c.ID, Challenge: c.Challenge, Salt: user.Salt}, nil
}

// LoginComplete consumes the challenge, finds the first ACTIVE device
// whose key verifies the signature and opens a session for it.
func (s *AuthService) LoginComplete(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	res, err := s.loginComplete(ctx, req)
	s.metrics.AuthAttempt(flowLogin, outcome(err))
	return res, err
}

func (s *AuthService) loginComplete(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	c, err := s.challenges.Consume(ctx, req.ChallengeID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpired
		}
		return nil, err
	}

	userID, ok := c.UserRef.UserID()
	if !ok {
		return nil, common.ErrMismatch
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrMismatch
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if user.UserName != req.Username {
		s.logger.Warn(ctx, "login challenge reused for another username", "user_id", user.ID)
		return nil, common.ErrMismatch
	}

	devices, err := s.repomanager.Devices(s.db).ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if len(devices) == 0 {
		return nil, common.ErrNoActiveDevices
	}

	message := cryptox.LoginMessage(c.Challenge, s.rpID)
	var device *models.Device
	for i := range devices {
		if s.verifier.Verify(devices[i].PubKey, message, req.Signature) {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		s.logger.Warn(ctx, "login signature matched no active device", "user_id", user.ID, "devices", len(devices))
		return nil, common.ErrBadSignature
	}

	token, session, err := s.sessions.CreateSession(ctx, user.ID, device.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID, "device_id", device.ID)
	return &LoginResult{Token: token, Session: session, User: user, DeviceID: device.ID}, nil
}

// Logout deletes the session named by token. An invalid or already
// revoked token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	session, err := s.sessions.VerifySession(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil
		}
		return err
	}
	return s.sessions.RevokeSession(ctx, session.ID, session.UserID)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrValidation):
		return "invalid"
	case errors.Is(err, common.ErrInvalidOrExpired):
		return "expired"
	case errors.Is(err, common.ErrInvalidProof), errors.Is(err, common.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, common.ErrMismatch):
		return "mismatch"
	case errors.Is(err, common.ErrNoActiveDevices):
		return "no_devices"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
