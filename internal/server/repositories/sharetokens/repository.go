package sharetokens

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	GetOrCreate(ctx context.Context, ownerID, folderID int64, candidate string) (*models.ShareToken, error)
	Resolve(ctx context.Context, token string) (*models.ShareToken, error)
}
