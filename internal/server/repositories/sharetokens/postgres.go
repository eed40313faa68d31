// Package sharetokens stores the opaque tokens used in folder share links.
package sharetokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreate stores candidate as the folder's token unless one was issued
// before, and returns whichever token is on record. Tokens never change.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, ownerID, folderID int64, candidate string) (*models.ShareToken, error) {
	insert := `
		INSERT INTO share_tokens (owner_id, folder_id, token)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, folder_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, ownerID, folderID, candidate); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT owner_id, folder_id, token, created_at FROM share_tokens
		WHERE owner_id = $1 AND folder_id = $2`

	t := &models.ShareToken{}
	err := r.db.QueryRowContext(ctx, query, ownerID, folderID).Scan(&t.OwnerID, &t.FolderID, &t.Token, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Resolve returns common.ErrorNotFound for unknown tokens.
func (r *PostgresRepository) Resolve(ctx context.Context, token string) (*models.ShareToken, error) {
	query := `SELECT owner_id, folder_id, token, created_at FROM share_tokens WHERE token = $1`

	t := &models.ShareToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.OwnerID, &t.FolderID, &t.Token, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
