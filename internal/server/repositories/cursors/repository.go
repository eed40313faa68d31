package cursors

import "context"

type Repository interface {
	Set(ctx context.Context, ownerID, folderID int64) error
	Get(ctx context.Context, ownerID int64) (int64, error)
}
