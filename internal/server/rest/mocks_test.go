package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/mock"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) RegisterInit(ctx context.Context, username string) (*services.RegisterChallenge, error) {
	args := m.Called(ctx, username)
	rc, _ := args.Get(0).(*services.RegisterChallenge)
	return rc, args.Error(1)
}

func (m *mockAuth) RegisterComplete(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAuth) LoginInit(ctx context.Context, username string) (*services.LoginChallenge, error) {
	args := m.Called(ctx, username)
	lc, _ := args.Get(0).(*services.LoginChallenge)
	return lc, args.Error(1)
}

func (m *mockAuth) LoginComplete(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*services.LoginResult)
	return res, args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockLinks struct{ mock.Mock }

func (m *mockLinks) InitLink(ctx context.Context, ownerUserID string) (*services.LinkInvite, error) {
	args := m.Called(ctx, ownerUserID)
	inv, _ := args.Get(0).(*services.LinkInvite)
	return inv, args.Error(1)
}

func (m *mockLinks) GetLinkInfo(ctx context.Context, token string) (*services.LinkInfo, error) {
	args := m.Called(ctx, token)
	info, _ := args.Get(0).(*services.LinkInfo)
	return info, args.Error(1)
}

func (m *mockLinks) CompleteLink(ctx context.Context, req services.CompleteLinkRequest) (*models.Device, error) {
	args := m.Called(ctx, req)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *mockLinks) CheckLinkStatus(ctx context.Context, linkID, callerUserID string) (*services.LinkStatus, error) {
	args := m.Called(ctx, linkID, callerUserID)
	st, _ := args.Get(0).(*services.LinkStatus)
	return st, args.Error(1)
}

func (m *mockLinks) ApproveDevice(ctx context.Context, deviceID, linkID, callerUserID string) error {
	return m.Called(ctx, deviceID, linkID, callerUserID).Error(0)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Me(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAccounts) Devices(ctx context.Context, userID string) ([]models.Device, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).([]models.Device)
	return d, args.Error(1)
}

func (m *mockAccounts) RevokeDevice(ctx context.Context, userID, deviceID string) error {
	return m.Called(ctx, userID, deviceID).Error(0)
}

func (m *mockAccounts) DeleteAccount(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) VerifySession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *mockSessions) Lifetime() time.Duration {
	return 24 * time.Hour
}

type mockChallenges struct{ mock.Mock }

func (m *mockChallenges) ListAll(ctx context.Context) ([]models.PendingChallengeView, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]models.PendingChallengeView)
	return v, args.Error(1)
}
