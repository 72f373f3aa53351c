package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/expo-access/internal/model"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var qrCols = []string{"id", "code", "user_type", "user_email", "user_name", "company_name", "is_used", "used_at", "created_at"}

func TestQRCodeCreate_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)

	mock.ExpectExec(`INSERT INTO qr_codes`).
		WithArgs("QR_abc", "visitor", "ana@x.com", "Ana", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	q := &model.QRCode{Code: "QR_abc", SubjectType: model.SubjectVisitor, SubjectEmail: "ana@x.com", SubjectName: "Ana"}
	require.NoError(t, repo.Create(context.Background(), q))
	assert.Equal(t, uint64(7), q.ID)
	assert.False(t, q.IsUsed)
	assert.Nil(t, q.UsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeCreate_DuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)

	mock.ExpectExec(`INSERT INTO qr_codes`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.QRCode{Code: "QR_dup", SubjectType: model.SubjectVisitor})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeCreateBulkTx_SingleStatement(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO qr_codes .* VALUES \(\?, \?, \?, \?, \?, 0, \?\),\(\?, \?, \?, \?, \?, 0, \?\)`).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery(`SELECT id, code FROM qr_codes WHERE code IN \(\?,\?\)`).WithArgs("QR_1", "QR_2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code"}).AddRow(41, "QR_2").AddRow(40, "QR_1"))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	codes := []model.QRCode{
		{Code: "QR_1", SubjectType: model.SubjectVisitor, SubjectEmail: "a@x.com", SubjectName: "A"},
		{Code: "QR_2", SubjectType: model.SubjectVisitor, SubjectEmail: "b@x.com", SubjectName: "B"},
	}
	require.NoError(t, repo.CreateBulkTx(context.Background(), tx, codes))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(40), codes[0].ID)
	assert.Equal(t, uint64(41), codes[1].ID)
	assert.False(t, codes[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeCreateBulkTx_MissingRowOnReload(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO qr_codes`).WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery(`SELECT id, code FROM qr_codes`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code"}).AddRow(40, "QR_1"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.CreateBulkTx(context.Background(), tx, []model.QRCode{{Code: "QR_1"}, {Code: "QR_2"}})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeGetByCode_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)

	mock.ExpectQuery(`SELECT .* FROM qr_codes WHERE code = \?`).
		WithArgs("QR_missing").
		WillReturnRows(sqlmock.NewRows(qrCols))

	_, err := repo.GetByCode(context.Background(), "QR_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeGetByCode_ScansNullable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)
	created := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	used := created.Add(time.Hour)

	mock.ExpectQuery(`SELECT .* FROM qr_codes WHERE code = \?`).
		WithArgs("QR_ana").
		WillReturnRows(sqlmock.NewRows(qrCols).
			AddRow(3, "QR_ana", "visitor", "ana@x.com", "Ana", nil, true, used, created))

	q, err := repo.GetByCode(context.Background(), "QR_ana")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectVisitor, q.SubjectType)
	assert.Nil(t, q.CompanyName)
	require.NotNil(t, q.UsedAt)
	assert.True(t, q.UsedAt.Equal(used))
}

func TestQRCodeMarkUsed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE qr_codes SET is_used = 1, used_at = \? WHERE id = \? AND is_used = 0`).
		WithArgs(at, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE qr_codes SET is_used = 1`).
		WithArgs(at, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkUsed(context.Background(), 3, at)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkUsed(context.Background(), 3, at)
	require.NoError(t, err)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeList_EmptyIsNotNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewQRCodeRepo(db)
	used := false

	mock.ExpectQuery(`SELECT .* FROM qr_codes WHERE 1=1 AND user_type = \? AND is_used = \?`).
		WithArgs("exhibitor", false).
		WillReturnRows(sqlmock.NewRows(qrCols))

	out, err := repo.List(context.Background(), QRFilter{SubjectType: model.SubjectExhibitor, Used: &used})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Len(t, out, 0)
}
