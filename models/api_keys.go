package models

import (
	"time"

	"github.com/google/uuid"
)

// ApiKeys stores only the SHA-256 digest of the issued key. The plaintext is
// returned to the caller exactly once at creation and never persisted.
type ApiKeys struct {
	Base      `gorm:"embedded"`
	KeyHash   string     `gorm:"key_hash;<-:create;not null;uniqueIndex"`
	Name      string     `gorm:"name;not null"`
	Status    Status     `gorm:"status;not null;default:'active'"`
	ExpiresAt *time.Time `gorm:"expires_at"`
	AccountID uuid.UUID  `gorm:"account_id;type:uuid;not null;index"`
	ApiID     uuid.UUID  `gorm:"api_id;type:uuid;not null;index"`
}
