package files

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, file *models.File) (created bool, err error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	ListByFolder(ctx context.Context, folderID int64, limit int) ([]*models.File, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.File, error)
	LastByOwner(ctx context.Context, ownerID int64) (*models.File, error)
	CountByFolder(ctx context.Context, folderID int64) (int, error)
	SetStorageKey(ctx context.Context, id int64, key string) error
}
