package lib

import (
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	var sqlDB *sql.DB
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestHashKey(t *testing.T) {
	a := HashKey("ak_secret")
	b := HashKey("ak_secret")
	c := HashKey("ak_other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestGenerateKeyStoresOnlyHash(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "api_keys"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(uuid.New(), time.Now(), time.Now()))
	mock.ExpectCommit()

	rawKey, apiKey, err := GenerateKey(db, uuid.New(), uuid.New(), "ci key")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rawKey, "ak_"))
	assert.Equal(t, HashKey(rawKey), apiKey.KeyHash)
	assert.NotContains(t, apiKey.KeyHash, rawKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateKeyIsOneTransaction(t *testing.T) {
	db, mock := setupMockDB(t)

	oldID := uuid.New()
	accountID := uuid.New()
	apiID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "api_keys"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key_hash", "name", "status", "account_id", "api_id"}).
			AddRow(oldID, HashKey("ak_old"), "prod key", "active", accountID, apiID))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "api_keys"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "api_keys"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(uuid.New(), time.Now(), time.Now()))
	mock.ExpectCommit()

	rawKey, newKey, err := RotateKey(db, oldID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rawKey, "ak_"))
	assert.Equal(t, "prod key", newKey.Name)
	assert.Equal(t, apiID, newKey.ApiID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateKeyUnknownKey(t *testing.T) {
	db, mock := setupMockDB(t)

	keyID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "api_keys"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, _, err := RotateKey(db, keyID)
	require.Error(t, err)
	appErr, ok := err.(*AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}
