package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/devices"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/linktokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Devices(db dbx.DBTX) devices.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	LinkTokens(db dbx.DBTX) linktokens.Repository
}
