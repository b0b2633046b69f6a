// Package users declares the repository contract for user accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts user. A taken username yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Delete removes the user and, through FK cascades, its devices,
	// sessions and link tokens. It reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteCreatedBefore removes accounts older than t.
	DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error)
}
