// Package repomanager binds the Postgres repository implementations to a
// connection or transaction and owns the schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/devices"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/linktokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (*PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (*PostgresRepositoryManager) Devices(db dbx.DBTX) devices.Repository {
	return devices.NewPostgresRepository(db)
}

func (*PostgresRepositoryManager) Challenges(db dbx.DBTX) challenges.Repository {
	return challenges.NewPostgresRepository(db)
}

func (*PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (*PostgresRepositoryManager) LinkTokens(db dbx.DBTX) linktokens.Repository {
	return linktokens.NewPostgresRepository(db)
}

// migrateUp is replaced in tests; the real one needs a live Postgres.
var migrateUp = func(ctx context.Context, db *sql.DB) ([]*goose.MigrationResult, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	if err != nil {
		return nil, err
	}
	return p.Up(ctx)
}

// RunMigrations brings the schema up to the newest embedded version.
// Already applied versions are skipped.
func (*PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	results, err := migrateUp(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %s: %w", r.Source.Path, r.Error)
		}
	}
	return nil
}
