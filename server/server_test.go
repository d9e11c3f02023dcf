package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/lib/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type tenant struct {
	apiID     uuid.UUID
	accountID uuid.UUID
	keyID     uuid.UUID
	subID     uuid.UUID
	planID    uuid.UUID
	rawKey    string
	upstream  string
}

func newTenant(upstream string) tenant {
	return tenant{
		apiID:     uuid.New(),
		accountID: uuid.New(),
		keyID:     uuid.New(),
		subID:     uuid.New(),
		planID:    uuid.New(),
		rawKey:    "ak_e2e_test_key",
		upstream:  upstream,
	}
}

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	var sqlDB *sql.DB
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
		lib.SetDB(nil)
	})

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	lib.SetDB(db)
	return mock
}

// expectAdmission scripts the durable reads behind one fully-admitted call:
// api, account, key, subscription, plan, month-to-date usage.
func expectAdmission(mock sqlmock.Sqlmock, tn tenant, usage int64, monthlyLimit int64) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "apis"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gateway_id", "upstream_base_url", "status", "account_id"}).
			AddRow(tn.apiID, "g1", tn.upstream, "active", tn.accountID))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(tn.accountID, "active"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "api_keys"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key_hash", "status", "account_id", "api_id"}).
			AddRow(tn.keyID, lib.HashKey(tn.rawKey), "active", tn.accountID, tn.apiID))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "subscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "plan_id", "status", "start_date"}).
			AddRow(tn.subID, tn.accountID, tn.planID, "active", time.Now().Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "plans"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "monthly_request_limit", "requests_per_second", "burst_limit", "status"}).
			AddRow(tn.planID, "Test", monthlyLimit, 2, 2, "active"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(total_requests), 0) FROM "monthly_usages"`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(usage))
}

// expectRecord scripts the usage transaction that follows a forwarded call.
func expectRecord(mock sqlmock.Sqlmock, countsTowardQuota bool) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "usage_logs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(uuid.New(), time.Now(), time.Now()))
	if countsTowardQuota {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "monthly_usages"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(uuid.New(), time.Now(), time.Now()))
	}
	mock.ExpectCommit()
}

func gatewayRequest(tn tenant) *http.Request {
	req, _ := http.NewRequest("GET", "/g1/v1/items?page=1", nil)
	req.Header.Set("x-api-key", tn.rawKey)
	return req
}

func TestEndToEndBurstThenRateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream says hi"))
	}))
	defer upstream.Close()

	mock := setupMockDB(t)
	tn := newTenant(upstream.URL)
	app := NewApp(ratelimit.NewMemoryStore())

	// plan: 2 rps, burst 2, monthly limit 100
	expectAdmission(mock, tn, 0, 100)
	expectRecord(mock, true)
	expectAdmission(mock, tn, 1, 100)
	expectRecord(mock, true)
	expectAdmission(mock, tn, 2, 100)

	resp, err := app.Test(gatewayRequest(tn), 5000)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "upstream says hi", string(body))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	resp, err = app.Test(gatewayRequest(tn), 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	resp, err = app.Test(gatewayRequest(tn), 5000)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)

	assert.NoError(t, mock.ExpectationsWereMet(), "the denied call must not append usage")
}

func TestEndToEndQuotaExceededSkipsUpstream(t *testing.T) {
	upstreamCalled := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalled = true
	}))
	defer upstream.Close()

	mock := setupMockDB(t)
	tn := newTenant(upstream.URL)
	app := NewApp(ratelimit.NewMemoryStore())

	// month-to-date usage already at the plan ceiling
	expectAdmission(mock, tn, 100, 100)

	resp, err := app.Test(gatewayRequest(tn), 5000)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.False(t, upstreamCalled, "quota-exhausted tenants must never reach the upstream")
	assert.NoError(t, mock.ExpectationsWereMet(), "no usage row for the denied call")

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "Monthly request limit reached", body.Message)
}

type unreachableStore struct{}

func (unreachableStore) Take(context.Context, string, int, float64, float64, time.Time) (float64, bool, error) {
	return 0, false, errors.New("dial tcp: connection refused")
}

func TestEndToEndRateLimitStoreDownFailsOpen(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	mock := setupMockDB(t)
	tn := newTenant(upstream.URL)
	app := NewApp(unreachableStore{})

	for i := 0; i < 3; i++ {
		expectAdmission(mock, tn, int64(i), 100)
		expectRecord(mock, true)

		resp, err := app.Test(gatewayRequest(tn), 5000)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, "store outage must not block traffic")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndToEndMissingKeyUnauthorized(t *testing.T) {
	mock := setupMockDB(t)
	tn := newTenant("https://example.com")
	app := NewApp(ratelimit.NewMemoryStore())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "apis"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gateway_id", "upstream_base_url", "status", "account_id"}).
			AddRow(tn.apiID, "g1", tn.upstream, "active", tn.accountID))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(tn.accountID, "active"))

	req, _ := http.NewRequest("GET", "/g1", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	var body struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "API key required", body.Message)
}

func TestEndToEndCorrelationIDEchoed(t *testing.T) {
	mock := setupMockDB(t)
	app := NewApp(ratelimit.NewMemoryStore())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "apis"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req, _ := http.NewRequest("GET", "/unknown", nil)
	req.Header.Set("X-Correlation-Id", "corr-123")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "corr-123", resp.Header.Get("X-Correlation-Id"))
}
