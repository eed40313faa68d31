package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/cursors"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/sharetokens"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Folders(db dbx.DBTX) folders.Repository
	Files(db dbx.DBTX) files.Repository
	ShareTokens(db dbx.DBTX) sharetokens.Repository
	Cursors(db dbx.DBTX) cursors.Repository
}
