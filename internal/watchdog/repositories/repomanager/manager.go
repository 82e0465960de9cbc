package repomanager

import (
	"context"
	"database/sql"

	"github.com/mkarpenko/keywarden/internal/dbx"
	"github.com/mkarpenko/keywarden/internal/watchdog/repositories/trusts"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Trusts(db dbx.DBTX) trusts.Repository
}
