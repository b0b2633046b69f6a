package linktokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository keeps link tokens. An id that is not a valid UUID
// matches no row.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.LinkToken) error {
	query := `
		INSERT INTO link_tokens (id, token, user_id, challenge, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.Token, l.UserID, l.Challenge, l.ExpiresAt, l.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.LinkToken, error) {
	query := `
		SELECT id, token, user_id, challenge, expires_at, created_at
		FROM link_tokens
		WHERE token = $1
	`
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.LinkToken, error) {
	query := `
		SELECT id, token, user_id, challenge, expires_at, created_at
		FROM link_tokens
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, arg string) (*models.LinkToken, error) {
	l := &models.LinkToken{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&l.ID, &l.Token, &l.UserID, &l.Challenge, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) SetChallenge(ctx context.Context, id, challenge string) error {
	query := `
		UPDATE link_tokens SET challenge = $2
		WHERE id = $1 AND NOT completed
	`
	res, err := r.db.ExecContext(ctx, query, id, challenge)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.ExactlyOne(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

// Complete marks the link used, provided challenge is still the current
// one. Of several callers holding the same challenge only one gets true.
func (r *PostgresRepository) Complete(ctx context.Context, id, challenge string) (bool, error) {
	query := `
		UPDATE link_tokens SET challenge = '', completed = TRUE
		WHERE id = $1 AND challenge = $2 AND challenge <> '' AND NOT completed
	`
	res, err := r.db.ExecContext(ctx, query, id, challenge)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.ExactlyOne(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	query := `
		DELETE FROM link_tokens
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		if dbx.IsInvalidTextRepresentation(err) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.ExactlyOne(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM link_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
