package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/infra/repository"
)

const lockQuery = `SELECT * FROM "courts" WHERE id = $1 FOR UPDATE`

func newMockRepo(t *testing.T) (*repository.GormRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return repository.NewGormRepository(gdb), mock
}

func courtRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "active"}).AddRow(id, "Court", true)
}

func TestLockCourtsTakesRowsInIDOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	for _, id := range []int64{2, 5, 9} {
		mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
			WithArgs(id).
			WillReturnRows(courtRow(id))
	}

	err := repo.LockCourts(context.Background(), 9, 2, 5, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCourtsUnknownCourt(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs(int64(1)).
		WillReturnRows(courtRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active"}))

	err := repo.LockCourts(context.Background(), 7, 1)
	assert.True(t, httperr.IsBusiness(err, "court_not_found"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
