package models

import (
	"time"

	"github.com/google/uuid"
)

// MonthlyUsage is the billing aggregate keyed by (account, api, month start).
// TotalRequests only ever grows within a month; it is read on the hot path by
// the quota guard and written by the usage recorder via an atomic upsert.
type MonthlyUsage struct {
	Base          `gorm:"embedded"`
	AccountID     uuid.UUID `gorm:"account_id;type:uuid;not null;uniqueIndex:idx_monthly_usage_account_api_month"`
	ApiID         uuid.UUID `gorm:"api_id;type:uuid;not null;uniqueIndex:idx_monthly_usage_account_api_month"`
	Month         time.Time `gorm:"month;not null;uniqueIndex:idx_monthly_usage_account_api_month"`
	TotalRequests int64     `gorm:"total_requests;not null;default:0"`
}
