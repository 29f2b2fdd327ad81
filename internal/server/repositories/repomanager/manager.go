package repomanager

import (
	"context"

	"github.com/dmitrijs2005/dailydiary/internal/dbx"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/diaries"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/exports"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound either to the shared connection
// (Conn) or to a transaction handed out by WithTx.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error

	Conn() dbx.DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	Users(db dbx.DBTX) users.Repository
	Diaries(db dbx.DBTX) diaries.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Exports(db dbx.DBTX) exports.Repository
}
