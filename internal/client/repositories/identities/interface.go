// Package identities persists the per-username device seed of the CLI.
package identities

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, id *models.Identity) error
	Get(ctx context.Context, username string) (*models.Identity, error)
	List(ctx context.Context) ([]*models.Identity, error)
	Delete(ctx context.Context, username string) error
}
