package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockGorm(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return sqlDB, mock, db
}

func countRows(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestFindCollision_ShortCircuitsOnFirstHit(t *testing.T) {
	sqlDB, mock, db := setupMockGorm(t)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM stakeholders WHERE email = $1 AND deleted_at IS NULL`)).
		WithArgs("a@b.com").
		WillReturnRows(countRows(1))

	repo := NewProfileRepository(db)
	label, found, err := repo.FindCollision(context.Background(), ProfileEmailColumns, "a@b.com", nil)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "stakeholders", label)
	// users table is never queried
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCollision_ReportsSecondTable(t *testing.T) {
	sqlDB, mock, db := setupMockGorm(t)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM stakeholders WHERE mobile = $1 AND deleted_at IS NULL AND id <> $2`)).
		WithArgs("01812345678", sqlmock.AnyArg()).
		WillReturnRows(countRows(0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE phone = $1 AND deleted_at IS NULL`)).
		WithArgs("01812345678").
		WillReturnRows(countRows(2))

	repo := NewProfileRepository(db)
	exclude := &ProfileRef{Table: "stakeholders", ID: uuid.New()}
	label, found, err := repo.FindCollision(context.Background(), ProfileMobileColumns, "01812345678", exclude)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "users", label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCollision_NoHit(t *testing.T) {
	sqlDB, mock, db := setupMockGorm(t)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM stakeholders`).WillReturnRows(countRows(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnRows(countRows(0))

	repo := NewProfileRepository(db)
	_, found, err := repo.FindCollision(context.Background(), ProfileEmailColumns, "free@b.com", nil)

	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name string
		opts ListOptions
		want string
	}{
		{"whitelisted asc", ListOptions{OrderBy: "name", Direction: "ASC"}, "name asc"},
		{"whitelisted default desc", ListOptions{OrderBy: "name"}, "name desc"},
		{"unknown column", ListOptions{OrderBy: "password; drop table users"}, "created_at desc"},
		{"empty", ListOptions{}, "created_at desc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.opts, "name", "created_at"))
		})
	}
}
