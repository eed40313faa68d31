// Package users stores the Telegram accounts that contacted the bot.
package users

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

// Upsert inserts the user or refreshes its names. The approval flag is never
// touched here; the stored value is returned in user.Approved.
func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (telegram_id, username, first_name, last_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name
		 RETURNING is_approved, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.TelegramID, user.UserName, user.FirstName, user.LastName).Scan(&user.Approved, &user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	query :=
		`SELECT telegram_id, username, first_name, last_name, is_approved, created_at FROM users
		 WHERE telegram_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, telegramID).
		Scan(&user.TelegramID, &user.UserName, &user.FirstName, &user.LastName, &user.Approved, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// SetApproved writes the approval flag. Writing the current value again is
// fine; an unknown user yields common.ErrorNotFound.
func (r *PostgresRepository) SetApproved(ctx context.Context, telegramID int64, approved bool) error {
	query := `UPDATE users SET is_approved = $2 WHERE telegram_id = $1`

	res, err := r.db.ExecContext(ctx, query, telegramID, approved)
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
