package models

import (
	"github.com/google/uuid"
)

// UsageLogs is the append-only per-call audit trail. It is never read on the
// proxy hot path.
type UsageLogs struct {
	Base           `gorm:"embedded"`
	ApiID          uuid.UUID `gorm:"api_id;type:uuid;<-:create;not null;index"`
	ApiKeyID       uuid.UUID `gorm:"api_key_id;type:uuid;<-:create;not null"`
	Endpoint       string    `gorm:"endpoint;<-:create;not null"`
	Method         string    `gorm:"method;<-:create;not null"`
	StatusCode     int       `gorm:"status_code;<-:create;not null"`
	ResponseTimeMs int64     `gorm:"response_time_ms;<-:create;not null"`
}
