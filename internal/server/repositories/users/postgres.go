package users

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

const (
	insertUser   = `INSERT INTO users (id, username, salt, created_at) VALUES ($1, $2, $3, $4)`
	selectByName = `SELECT id, username, salt, created_at FROM users WHERE username = $1`
	selectByID   = `SELECT id, username, salt, created_at FROM users WHERE id = $1`
	deleteUser   = `DELETE FROM users WHERE id = $1`
	deleteOlder  = `DELETE FROM users WHERE created_at < $1`
)

// PostgresRepository keeps accounts in the users table. Dependent rows
// go with the user through ON DELETE CASCADE.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, insertUser, u.ID, u.UserName, u.Salt, u.CreatedAt)
	switch {
	case err == nil:
		return nil
	case dbx.IsUniqueViolation(err):
		return common.ErrConflict
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.one(ctx, selectByName, username)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.one(ctx, selectByID, id)
}

func (r *PostgresRepository) one(ctx context.Context, query, key string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, key).Scan(&u.ID, &u.UserName, &u.Salt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteOlder, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
