package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

func TestUserDataRepositoryGetLocksInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserDataRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_data WHERE user_id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "service_months", "service_periods", "effectivity_date", "created_at", "updated_at"}).
			AddRow("u1", 6, `[{"months":6,"archivedApplicationId":"arch-1"}]`, nil, now, now))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	data, err := repo.Get(context.Background(), tx, "u1")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, 6, data.ServiceMonths)
	assert.True(t, data.ServicePeriods.HasArchive("arch-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDataRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserDataRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_data")).
		WithArgs("u1", 6, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), nil, &models.UserData{
		UserID:         "u1",
		ServiceMonths:  6,
		ServicePeriods: models.ServicePeriods{{Months: 6}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDataRepositorySetEffectivityDateSkipsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserDataRepository(db)

	date := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_data.effectivity_date IS NULL")).
		WithArgs("u1", date, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.SetEffectivityDate(context.Background(), nil, "u1", date)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
