package repository_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/medsupply/medsupply-backend/internal/stock/repository"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entryID = "5f3c2a18-6b0f-4f6c-93b1-2a4c8d9e0f11"

func TestDecrement_SerializationFailureIsRetryableConflict(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery("UPDATE stock_entries").
		WillReturnError(&pq.Error{Code: "40001"})
	mockDB.ExpectRollback()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	repo := repository.NewStockEntryRepository(nil)
	_, err = repo.Decrement(context.Background(), tx, entryID, 10)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, errors.Is(err, errors.ErrStorageConflict))
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)

	mockDB.ExpectationsWereMet(t)
}

func TestDecrement_CheckViolationReportsQuantity(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery("UPDATE stock_entries").
		WillReturnError(&pq.Error{Code: "23514", Constraint: "quantity_non_negative"})
	mockDB.ExpectRollback()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	repo := repository.NewStockEntryRepository(nil)
	_, err = repo.Decrement(context.Background(), tx, entryID, 10)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, errors.Is(err, errors.ErrValidation))
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must not drive stock below zero", appErr.Details["quantity"])

	mockDB.ExpectationsWereMet(t)
}

func TestAvailableForDrug_NullSumMeansZero(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.NewFromDB(mockDB.DB, logger.New("test", "test"))

	mockDB.Mock.ExpectQuery("SELECT SUM").
		WillReturnRows(testutil.MockRows("sum").AddRow(nil))

	repo := repository.NewStockEntryRepository(db)
	total, err := repo.AvailableForDrug(context.Background(), db, entryID, entryID)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	mockDB.ExpectationsWereMet(t)
}

func TestDecrement_MissingEntryIsNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery("UPDATE stock_entries").
		WillReturnRows(testutil.MockRows("id", "location_id", "lot_id", "quantity", "created_at", "updated_at"))
	mockDB.ExpectRollback()

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	repo := repository.NewStockEntryRepository(nil)
	_, err = repo.Decrement(context.Background(), tx, entryID, 10)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
