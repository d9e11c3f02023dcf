package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscriptions binds an account to a plan for a time range. At most one
// subscription per account is active at any instant; a nil EndDate means
// open-ended.
type Subscriptions struct {
	Base      `gorm:"embedded"`
	AccountID uuid.UUID          `gorm:"account_id;type:uuid;not null;index"`
	PlanID    uuid.UUID          `gorm:"plan_id;type:uuid;not null"`
	Status    SubscriptionStatus `gorm:"status;not null;default:'active'"`
	StartDate time.Time          `gorm:"start_date;not null"`
	EndDate   *time.Time         `gorm:"end_date"`

	Plan Plans `gorm:"foreignKey:PlanID"`
}
