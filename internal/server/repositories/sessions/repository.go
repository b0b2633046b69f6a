// Package sessions declares the repository contract for login sessions.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	// Get returns the session row or common.ErrorNotFound. Expiry is the
	// caller's concern.
	Get(ctx context.Context, id string) (*models.Session, error)
	// Delete removes the session only if it belongs to userID.
	Delete(ctx context.Context, id, userID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
