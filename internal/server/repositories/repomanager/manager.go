package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/tenants"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Tenants(db dbx.DBTX) tenants.Repository
	Files(db dbx.DBTX) files.Repository
}
