package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const upsertQ = `(?s)^INSERT\s+INTO\s+users\s*\(telegram_id,\s*username,\s*first_name,\s*last_name\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s*\(telegram_id\)\s*DO\s+UPDATE\s+SET.*RETURNING\s+is_approved,\s*created_at\s*$`

func TestUpsert_ReturnsStoredApproval(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(upsertQ).
		WithArgs(int64(42), "neo", "Thomas", "Anderson").
		WillReturnRows(sqlmock.NewRows([]string{"is_approved", "created_at"}).AddRow(true, now))

	u := &models.User{TelegramID: 42, UserName: "neo", FirstName: "Thomas", LastName: "Anderson", Approved: false}
	got, err := repo.Upsert(context.Background(), u)
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if !got.Approved || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(upsertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Upsert(context.Background(), &models.User{TelegramID: 1})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const getQ = `(?s)^SELECT\s+telegram_id,\s*username,\s*first_name,\s*last_name,\s*is_approved,\s*created_at\s+FROM\s+users\s+WHERE\s+telegram_id\s*=\s*\$1\s*$`

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"telegram_id", "username", "first_name", "last_name", "is_approved", "created_at"}).
		AddRow(int64(42), "neo", "Thomas", "", false, time.Now())
	mock.ExpectQuery(getQ).WithArgs(int64(42)).WillReturnRows(rows)

	got, err := repo.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.TelegramID != 42 || got.UserName != "neo" || got.Approved {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs(int64(7)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 7)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

const setApprovedQ = `(?s)^UPDATE\s+users\s+SET\s+is_approved\s*=\s*\$2\s+WHERE\s+telegram_id\s*=\s*\$1\s*$`

func TestSetApproved(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(setApprovedQ).WithArgs(int64(5), true).WillReturnResult(sqlmock.NewResult(0, 1))
		if err := repo.SetApproved(context.Background(), 5, true); err != nil {
			t.Fatalf("SetApproved error: %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(setApprovedQ).WithArgs(int64(5), false).WillReturnResult(sqlmock.NewResult(0, 0))
		if err := repo.SetApproved(context.Background(), 5, false); !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want not found, got %v", err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(setApprovedQ).WillReturnError(errors.New("boom"))
		if err := repo.SetApproved(context.Background(), 5, true); err == nil {
			t.Fatal("expected error")
		}
	})
}
