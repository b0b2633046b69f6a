package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts or replaces the identity for id.Username.
func (r *SQLiteRepository) Save(ctx context.Context, id *models.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (username, seed, salt, relying_party_id, device_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			seed = excluded.seed,
			salt = excluded.salt,
			relying_party_id = excluded.relying_party_id,
			device_id = excluded.device_id
	`, id.Username, id.Seed, id.Salt, id.RelyingPartyID, id.DeviceID, id.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save identity %q: %w", id.Username, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, username string) (*models.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT username, seed, salt, relying_party_id, device_id, created_at
		FROM identities WHERE username = ?
	`, username)

	id, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %q: %w", username, err)
	}
	return id, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username, seed, salt, relying_party_id, device_id, created_at
		FROM identities ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var result []*models.Identity
	for rows.Next() {
		id, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete identity %q: %w", username, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Identity, error) {
	var id models.Identity
	if err := s.Scan(&id.Username, &id.Seed, &id.Salt, &id.RelyingPartyID, &id.DeviceID, &id.CreatedAt); err != nil {
		return nil, err
	}
	return &id, nil
}
