package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/logintokens"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	LoginTokens(db dbx.DBTX) logintokens.Repository
}
