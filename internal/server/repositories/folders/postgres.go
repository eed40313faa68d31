// Package folders provides a PostgreSQL-backed repository of owner folders.
package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

const folderColumns = `id, owner_id, name, password_hash, created_at`

// PostgresRepository implements folder storage over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(s scanner) (*models.Folder, error) {
	f := &models.Folder{}
	if err := s.Scan(&f.ID, &f.OwnerID, &f.Name, &f.PasswordHash, &f.CreatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

// GetOrCreate returns the owner's folder called name, creating it if needed.
// It is a single statement: concurrent callers racing on the same name all
// get the same row back thanks to the (owner_id, name) unique constraint.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, ownerID int64, name string) (*models.Folder, error) {
	query := `
		INSERT INTO folders (owner_id, name)
		VALUES ($1, $2)
		ON CONFLICT (owner_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING ` + folderColumns

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, ownerID, name))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// GetByID returns common.ErrorNotFound for unknown ids.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// GetByOwnerAndName returns common.ErrorNotFound when the owner has no such folder.
func (r *PostgresRepository) GetByOwnerAndName(ctx context.Context, ownerID int64, name string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND name = $2`

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, ownerID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// SetPassword stores passwordHash, or clears protection when it is nil.
func (r *PostgresRepository) SetPassword(ctx context.Context, id int64, passwordHash *string) error {
	query := `UPDATE folders SET password_hash = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListByOwner returns up to limit folders, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1
		ORDER BY id DESC
		LIMIT $2`

	return r.list(ctx, query, ownerID, limit)
}

// Search returns up to limit folders whose name contains substring, ignoring
// case, newest first. LIKE wildcards in substring match literally.
func (r *PostgresRepository) Search(ctx context.Context, ownerID int64, substring string, limit int) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND name ILIKE $2 ESCAPE '\'
		ORDER BY id DESC
		LIMIT $3`

	return r.list(ctx, query, ownerID, "%"+escapeLike(substring)+"%", limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Folder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
