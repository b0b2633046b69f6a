package client

import (
	"context"
)

// Client is the CLI's view of the gophauth HTTP API. Calls that need a
// session use the token last stored with SetToken.
type Client interface {
	Ping(ctx context.Context) error

	RegisterInit(ctx context.Context, username string) (*RegisterChallenge, error)
	RegisterComplete(ctx context.Context, req RegisterCompletion) error
	LoginInit(ctx context.Context, username string) (*LoginChallenge, error)
	LoginComplete(ctx context.Context, req LoginCompletion) (string, error)
	Logout(ctx context.Context) error

	Me(ctx context.Context) (*Me, error)
	Devices(ctx context.Context) ([]Device, error)
	RevokeDevice(ctx context.Context, deviceID string) error
	DeleteAccount(ctx context.Context) error

	LinkInit(ctx context.Context) (*LinkInvite, error)
	LinkInfo(ctx context.Context, token string) (*LinkInfo, error)
	LinkComplete(ctx context.Context, req LinkCompletion) (string, error)
	LinkStatus(ctx context.Context, linkID string) (*LinkStatus, error)
	LinkApprove(ctx context.Context, deviceID, linkID string) error

	SetToken(token string)
	Token() string
}
