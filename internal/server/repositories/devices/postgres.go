package devices

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

// PostgresRepository stores devices over dbx.DBTX (*sql.DB or *sql.Tx).
// An id that is not a valid UUID matches no row.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Device) error {
	query := `
		INSERT INTO devices (id, user_id, pub_key, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.UserID, d.PubKey, d.Name, string(d.Status), d.CreatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return common.ErrConflict
		case dbx.IsForeignKeyViolation(err):
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Device, error) {
	query := `
		SELECT id, user_id, pub_key, name, status, created_at
		FROM devices
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Device, error) {
	query := `
		SELECT id, user_id, pub_key, name, status, created_at
		FROM devices
		WHERE user_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at, id
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Device
	for rows.Next() {
		var d models.Device
		var status string
		if err := rows.Scan(&d.ID, &d.UserID, &d.PubKey, &d.Name, &status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		d.Status = models.DeviceStatus(status)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) LatestPendingAfter(ctx context.Context, userID string, t time.Time) (*models.Device, error) {
	query := `
		SELECT id, user_id, pub_key, name, status, created_at
		FROM devices
		WHERE user_id = $1 AND status = 'PENDING' AND created_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var d models.Device
	var status string
	err := r.db.QueryRowContext(ctx, query, userID, t).
		Scan(&d.ID, &d.UserID, &d.PubKey, &d.Name, &status, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	d.Status = models.DeviceStatus(status)
	return &d, nil
}

func (r *PostgresRepository) Activate(ctx context.Context, id, userID string) (bool, error) {
	query := `
		UPDATE devices SET status = 'ACTIVE'
		WHERE id = $1 AND user_id = $2 AND status = 'PENDING'
	`
	return r.execOne(ctx, query, id, userID)
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	query := `
		DELETE FROM devices
		WHERE id = $1 AND user_id = $2
	`
	return r.execOne(ctx, query, id, userID)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func (r *PostgresRepository) DeletePendingBefore(ctx context.Context, t time.Time) (int64, error) {
	query := `
		DELETE FROM devices
		WHERE status = 'PENDING' AND created_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, t)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
