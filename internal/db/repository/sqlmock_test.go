package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
)

func TestPermissionRepo_ReplaceRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM permissions`).WithArgs(testDatasetArn).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO permissions`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	repo := NewPermissionRepo(db)
	err = repo.ReplaceForDataset(context.Background(), testDatasetArn, []domain.Permission{
		{UserGroupArn: testUserArn, Field: "*", RLSValues: "*"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapDBError(t *testing.T) {
	assert.NoError(t, mapDBError(nil))

	var conflict *domain.ConflictError
	assert.ErrorAs(t, mapDBError(errors.New("UNIQUE constraint failed: permissions.id")), &conflict)

	plain := errors.New("boom")
	assert.Equal(t, plain, mapDBError(plain))
}
