package folders

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	GetOrCreate(ctx context.Context, ownerID int64, name string) (*models.Folder, error)
	GetByID(ctx context.Context, id int64) (*models.Folder, error)
	GetByOwnerAndName(ctx context.Context, ownerID int64, name string) (*models.Folder, error)
	SetPassword(ctx context.Context, id int64, passwordHash *string) error
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Folder, error)
	Search(ctx context.Context, ownerID int64, substring string, limit int) ([]*models.Folder, error)
}
