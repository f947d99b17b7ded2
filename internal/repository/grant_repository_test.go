package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

var grantRowColumns = []string{"id", "title", "description", "total_amount", "remaining_balance", "status", "person_in_charge",
	"duration_months", "start_date", "end_date", "created_by", "created_at", "updated_at"}

func grantRow(id string, total, remaining int64, status models.GrantStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(grantRowColumns).
		AddRow(id, "Sensor array", "", total, remaining, string(status), "s1", 12, nil, nil, "sup1", now, now)
}

func TestGrantRepositoryCreateInitialisesBalance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grants")).WillReturnResult(sqlmock.NewResult(1, 1))
	grant := &models.Grant{Title: "Sensor array", TotalAmount: 10000, CreatedBy: "sup1"}
	require.NoError(t, repo.Create(context.Background(), grant))
	assert.Equal(t, int64(10000), grant.RemainingBalance)
	assert.Equal(t, models.GrantStatusPending, grant.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryRegister(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO grant_registrations (id, grant_id, student_id, registered_at)")
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "g1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	inserted, err := repo.Register(context.Background(), &models.GrantRegistration{GrantID: "g1", StudentID: "s1"})
	require.NoError(t, err)
	assert.True(t, inserted)

	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "g1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	inserted, err = repo.Register(context.Background(), &models.GrantRegistration{GrantID: "g1", StudentID: "s1"})
	require.NoError(t, err)
	assert.False(t, inserted)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM grant_registrations WHERE grant_id = $1 AND student_id = $2)")).
		WithArgs("g1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.RegistrationExists(context.Background(), "g1", "s1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryRecordExpenditureCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE grants SET remaining_balance = remaining_balance - $2")).
		WithArgs("g1", int64(2500), sqlmock.AnyArg()).
		WillReturnRows(grantRow("g1", 10000, 7500, models.GrantStatusActive))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grant_expenditures")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	grant, err := repo.RecordExpenditure(context.Background(), &models.GrantExpenditure{GrantID: "g1", Amount: 2500, RecordedBy: "sup1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7500), grant.RemainingBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryRecordExpenditureRollsBackWhenGuardFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("AND remaining_balance >= $2")).
		WithArgs("g1", int64(20000), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(grantRowColumns))
	mock.ExpectRollback()

	_, err := repo.RecordExpenditure(context.Background(), &models.GrantExpenditure{GrantID: "g1", Amount: 20000, RecordedBy: "sup1"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryUpdateShiftsBalance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("remaining_balance = remaining_balance + ($9 - total_amount)")).
		WithArgs("g1", int64(10000), "Sensor array", "", nil, 12, nil, nil, int64(12000), sqlmock.AnyArg()).
		WillReturnRows(grantRow("g1", 12000, 9500, models.GrantStatusActive))

	grant, err := repo.Update(context.Background(), GrantUpdateParams{
		ID: "g1", ExpectedTotal: 10000, TotalAmount: 12000, Title: "Sensor array", DurationMonths: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12000), grant.TotalAmount)
	assert.True(t, grant.BalanceWithinBounds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryTransitionStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE grants SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("g1", models.GrantStatusPending, models.GrantStatusActive, sqlmock.AnyArg()).
		WillReturnRows(grantRow("g1", 10000, 10000, models.GrantStatusActive))
	grant, err := repo.TransitionStatus(context.Background(), "g1", models.GrantStatusPending, models.GrantStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusActive, grant.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
