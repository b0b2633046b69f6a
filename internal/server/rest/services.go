package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// AuthService is the register/login surface used by the handlers.
type AuthService interface {
	RegisterInit(ctx context.Context, username string) (*services.RegisterChallenge, error)
	RegisterComplete(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	LoginInit(ctx context.Context, username string) (*services.LoginChallenge, error)
	LoginComplete(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

type LinkService interface {
	InitLink(ctx context.Context, ownerUserID string) (*services.LinkInvite, error)
	GetLinkInfo(ctx context.Context, token string) (*services.LinkInfo, error)
	CompleteLink(ctx context.Context, req services.CompleteLinkRequest) (*models.Device, error)
	CheckLinkStatus(ctx context.Context, linkID, callerUserID string) (*services.LinkStatus, error)
	ApproveDevice(ctx context.Context, deviceID, linkID, callerUserID string) error
}

type AccountService interface {
	Me(ctx context.Context, userID string) (*models.User, error)
	Devices(ctx context.Context, userID string) ([]models.Device, error)
	RevokeDevice(ctx context.Context, userID, deviceID string) error
	DeleteAccount(ctx context.Context, userID string) error
}

type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*models.Session, error)
	Lifetime() time.Duration
}

type ChallengeLister interface {
	ListAll(ctx context.Context) ([]models.PendingChallengeView, error)
}

// Services groups the handler dependencies.
type Services struct {
	Auth       AuthService
	Links      LinkService
	Accounts   AccountService
	Sessions   SessionVerifier
	Challenges ChallengeLister
}
