package sharetokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenCols = []string{"owner_id", "folder_id", "token", "created_at"}

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+share_tokens\s*\(owner_id,\s*folder_id,\s*token\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(owner_id,\s*folder_id\)\s*DO\s+NOTHING\s*$`
	selectQ = `(?s)^SELECT\s+owner_id,\s*folder_id,\s*token,\s*created_at\s+FROM\s+share_tokens\s+WHERE\s+owner_id\s*=\s*\$1\s+AND\s+folder_id\s*=\s*\$2$`
	resolveQ = `^SELECT\s+owner_id,\s*folder_id,\s*token,\s*created_at\s+FROM\s+share_tokens\s+WHERE\s+token\s*=\s*\$1$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestGetOrCreate_NewToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).WithArgs(int64(1), int64(10), "cand").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectQ).WithArgs(int64(1), int64(10)).
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(10), "cand", time.Now()))

	tok, err := repo.GetOrCreate(context.Background(), 1, 10, "cand")
	require.NoError(t, err)
	assert.Equal(t, "cand", tok.Token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_KeepsExistingToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).WithArgs(int64(1), int64(10), "second").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectQ).WithArgs(int64(1), int64(10)).
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(10), "first", time.Now()))

	tok, err := repo.GetOrCreate(context.Background(), 1, 10, "second")
	require.NoError(t, err)
	assert.Equal(t, "first", tok.Token)
}

func TestGetOrCreate_InsertError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(insertQ).WillReturnError(errors.New("fk"))

	_, err := repo.GetOrCreate(context.Background(), 1, 10, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestResolve(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(resolveQ).WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(10), "tok", time.Now()))
	tok, err := repo.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(10), tok.FolderID)

	mock.ExpectQuery(resolveQ).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
