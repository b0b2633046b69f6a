// Package challenges stores pending auth challenges. Consume is an
// atomic read-and-delete in every implementation: of two concurrent
// callers for the same id only one gets the record.
package challenges

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.AuthChallenge) error
	// Consume deletes and returns the challenge, or common.ErrorNotFound.
	// Expiry is not checked here.
	Consume(ctx context.Context, id string) (*models.AuthChallenge, error)
	List(ctx context.Context) ([]models.AuthChallenge, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
