package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTx(t *testing.T) {
	const stmt = `UPDATE roles SET hideable = $1`

	t.Run("commits on success", func(t *testing.T) {
		sqlDB, mock, db := setupMockGorm(t)
		defer sqlDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WithArgs(true).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := NewTransactionManager(db).RunInTx(context.Background(), func(txCtx context.Context) error {
			assert.True(t, InTx(txCtx))
			return GetDB(txCtx, db).Exec(`UPDATE roles SET hideable = ?`, true).Error
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		sqlDB, mock, db := setupMockGorm(t)
		defer sqlDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WithArgs(true).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectRollback()

		boom := errors.New("grant failed")
		err := NewTransactionManager(db).RunInTx(context.Background(), func(txCtx context.Context) error {
			if err := GetDB(txCtx, db).Exec(`UPDATE roles SET hideable = ?`, true).Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outside a transaction", func(t *testing.T) {
		assert.False(t, InTx(context.Background()))
	})
}
