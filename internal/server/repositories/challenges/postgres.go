package challenges

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.AuthChallenge) error {
	query := `
		INSERT INTO auth_challenges (id, user_ref_kind, user_ref, challenge, salt, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, string(c.UserRef.Kind), c.UserRef.Value, c.Challenge, c.Salt, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, id string) (*models.AuthChallenge, error) {
	query := `
		DELETE FROM auth_challenges
		WHERE id = $1
		RETURNING id, user_ref_kind, user_ref, challenge, salt, expires_at
	`
	c, err := scanChallenge(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.AuthChallenge, error) {
	query := `
		SELECT id, user_ref_kind, user_ref, challenge, salt, expires_at
		FROM auth_challenges
		ORDER BY expires_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.AuthChallenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM auth_challenges
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

type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(s scanner) (*models.AuthChallenge, error) {
	var c models.AuthChallenge
	var kind string
	if err := s.Scan(&c.ID, &kind, &c.UserRef.Value, &c.Challenge, &c.Salt, &c.ExpiresAt); err != nil {
		return nil, err
	}
	k, err := models.ParseUserRefKind(kind)
	if err != nil {
		return nil, err
	}
	c.UserRef.Kind = k
	return &c, nil
}
