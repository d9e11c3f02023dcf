package gateway

import (
	"github.com/relaygate/relaygate/models"
)

// RequestContext carries the resolved admission state for one proxied call.
// It is built once, passed by value, and never mutated downstream.
type RequestContext struct {
	Api          *models.Apis
	ApiKey       *models.ApiKeys
	Subscription *models.Subscriptions
}
