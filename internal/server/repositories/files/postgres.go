// Package files persists references to uploaded files.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

const fileColumns = `id, owner_id, folder_id, kind, file_unique_id, file_id, file_name, file_size, mime_type, storage_key, created_at`

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
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

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	var kind string
	err := s.Scan(&f.ID, &f.OwnerID, &f.FolderID, &kind, &f.FileUniqueID, &f.FileID,
		&f.FileName, &f.FileSize, &f.MimeType, &f.StorageKey, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.Kind = models.FileKind(kind)
	return f, nil
}

// Insert records file unless the owner already has a file with the same
// FileUniqueID. In both cases file is updated with the stored row, so the
// first upload's id, folder and storage key win.
func (r *PostgresRepository) Insert(ctx context.Context, file *models.File) (bool, error) {
	query := `
		INSERT INTO files (owner_id, folder_id, kind, file_unique_id, file_id, file_name, file_size, mime_type, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, file_unique_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.OwnerID, file.FolderID, string(file.Kind), file.FileUniqueID, file.FileID,
		file.FileName, file.FileSize, file.MimeType, file.StorageKey).Scan(&file.ID, &file.CreatedAt)

	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("db error: %w", err)
	}

	query = `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 AND file_unique_id = $2`
	existing, err := scanFile(r.db.QueryRowContext(ctx, query, file.OwnerID, file.FileUniqueID))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	*file = *existing
	return false, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// LastByOwner returns the owner's most recent upload.
func (r *PostgresRepository) LastByOwner(ctx context.Context, ownerID int64) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY id DESC LIMIT 1`
	return r.getOne(ctx, query, ownerID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// ListByFolder returns up to limit files of the folder in upload order.
func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID int64, limit int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE folder_id = $1
		ORDER BY id ASC
		LIMIT $2`
	return r.list(ctx, query, folderID, limit)
}

// ListByOwner returns up to limit of the owner's files, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1
		ORDER BY id DESC
		LIMIT $2`
	return r.list(ctx, query, ownerID, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
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

func (r *PostgresRepository) CountByFolder(ctx context.Context, folderID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM files WHERE folder_id = $1`, folderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// SetStorageKey attaches the object-storage key of the raw copy.
func (r *PostgresRepository) SetStorageKey(ctx context.Context, id int64, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE files SET storage_key = $2 WHERE id = $1`, id, key)
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
