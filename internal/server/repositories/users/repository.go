package users

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, telegramID int64) (*models.User, error)
	SetApproved(ctx context.Context, telegramID int64, approved bool) error
}
