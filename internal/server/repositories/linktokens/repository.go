// Package linktokens declares the repository contract for device link
// tokens.
package linktokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.LinkToken) error
	GetByToken(ctx context.Context, token string) (*models.LinkToken, error)
	GetByID(ctx context.Context, id string) (*models.LinkToken, error)
	// SetChallenge overwrites the link's challenge. It returns
	// common.ErrorNotFound when the link no longer exists or was
	// already completed.
	SetChallenge(ctx context.Context, id, challenge string) error
	// Complete consumes challenge and marks the link used. It reports
	// false when the challenge was replaced or already consumed.
	Complete(ctx context.Context, id, challenge string) (bool, error)
	// Delete removes the link only if it belongs to userID.
	Delete(ctx context.Context, id, userID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
