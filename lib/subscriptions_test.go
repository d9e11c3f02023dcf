package lib

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthStartIsUTCMonthBoundary(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at := time.Date(2025, time.March, 15, 22, 30, 0, 0, loc)
	start := MonthStart(at)

	assert.Equal(t, time.UTC, start.Location())
	assert.Equal(t, time.March, start.Month())
	assert.Equal(t, 1, start.Day())
	assert.Zero(t, start.Hour())
	assert.Zero(t, start.Minute())
}

func TestActiveSubscriptionNone(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "subscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sub, err := ActiveSubscription(db, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestActiveSubscriptionWithPlan(t *testing.T) {
	db, mock := setupMockDB(t)

	accountID := uuid.New()
	subID := uuid.New()
	planID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "subscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "plan_id", "status", "start_date"}).
			AddRow(subID, accountID, planID, "active", time.Now().Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plans"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "monthly_request_limit", "requests_per_second", "burst_limit", "status"}).
			AddRow(planID, "Pro", 1000000, 100, 200, "active"))

	sub, err := ActiveSubscription(db, accountID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, int64(1000000), sub.Plan.MonthlyRequestLimit)
}

func TestActiveSubscriptionLazyExpiry(t *testing.T) {
	db, mock := setupMockDB(t)

	accountID := uuid.New()
	subID := uuid.New()
	planID := uuid.New()
	past := time.Now().Add(-24 * time.Hour)

	// the row still says active but its end date has passed; the read
	// transitions it to expired and reports no subscription
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "subscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "plan_id", "status", "start_date", "end_date"}).
			AddRow(subID, accountID, planID, "active", past.Add(-time.Hour), past))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plans"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(planID, "active"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "subscriptions"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sub, err := ActiveSubscription(db, accountID)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyUsageTotal(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(total_requests), 0) FROM "monthly_usages"`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(42))

	total, err := MonthlyUsageTotal(db, uuid.New(), MonthStart(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
}
