// Package devices declares the repository contract for device keys.
package devices

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts device. A public key already registered anywhere
	// yields common.ErrConflict.
	Create(ctx context.Context, device *models.Device) error
	ListByUser(ctx context.Context, userID string) ([]models.Device, error)
	// ListActiveByUser returns ACTIVE devices oldest first.
	ListActiveByUser(ctx context.Context, userID string) ([]models.Device, error)
	// LatestPendingAfter returns the newest PENDING device of userID
	// created strictly after t, or common.ErrorNotFound.
	LatestPendingAfter(ctx context.Context, userID string, t time.Time) (*models.Device, error)
	// Activate flips a PENDING device owned by userID to ACTIVE and
	// reports whether this call performed the transition.
	Activate(ctx context.Context, id, userID string) (bool, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	DeletePendingBefore(ctx context.Context, t time.Time) (int64, error)
}
