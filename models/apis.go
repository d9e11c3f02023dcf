package models

import (
	"github.com/google/uuid"
)

// Apis is one routable upstream per tenant. GatewayID is the public route
// token; it is issued once and never changes.
type Apis struct {
	Base            `gorm:"embedded"`
	Name            string    `gorm:"name;not null"`
	GatewayID       string    `gorm:"gateway_id;<-:create;not null;uniqueIndex"`
	UpstreamBaseURL string    `gorm:"upstream_base_url;not null"`
	Status          Status    `gorm:"status;not null;default:'active'"`
	AccountID       uuid.UUID `gorm:"account_id;type:uuid;not null;index"`

	// Per-API overrides; when nil the subscription plan's limits apply.
	RateLimitRPS   *int `gorm:"rate_limit_rps"`
	RateLimitBurst *int `gorm:"rate_limit_burst"`
}
