// Package cursors tracks each owner's current upload folder.
package cursors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Set makes folderID the owner's current folder.
func (r *PostgresRepository) Set(ctx context.Context, ownerID, folderID int64) error {
	query := `
		INSERT INTO current_folders (owner_id, folder_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_id) DO UPDATE SET folder_id = EXCLUDED.folder_id, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, ownerID, folderID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the current folder id, or common.ErrorNotFound if none was set.
func (r *PostgresRepository) Get(ctx context.Context, ownerID int64) (int64, error) {
	var folderID int64
	err := r.db.QueryRowContext(ctx, `SELECT folder_id FROM current_folders WHERE owner_id = $1`, ownerID).Scan(&folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return folderID, nil
}
