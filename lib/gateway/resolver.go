package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/models"
	"gorm.io/gorm"
)

// Resolve maps a public gateway id to its Api. Unknown or inactive Apis are
// NotFound; an Api whose owning account is deactivated is Forbidden. Results
// may come from the short-TTL cache when enabled.
func Resolve(ctx context.Context, gatewayID string) (*models.Apis, error) {
	cacheKey := "gateway:" + gatewayID
	if cached, hit, _ := lib.GetCache(cacheKey); hit {
		var api models.Apis
		if err := json.Unmarshal(cached, &api); err == nil {
			return &api, nil
		}
	}

	db := lib.DB().WithContext(ctx)

	var api models.Apis
	err := db.Where("gateway_id = ? AND status = ?", gatewayID, models.Active).First(&api).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lib.ErrNotFound("API not found or inactive")
	}
	if err != nil {
		return nil, lib.ErrInternal("Internal Server Error")
	}

	var account models.Accounts
	err = db.Where("id = ?", api.AccountID).First(&account).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lib.ErrInternal("Internal Server Error")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || account.Status != models.Active {
		return nil, lib.ErrForbidden("Account inactive")
	}

	if encoded, err := json.Marshal(api); err == nil {
		_ = lib.SetCache(cacheKey, encoded)
	}
	return &api, nil
}

// Authenticate validates a presented key against the Api being called. The
// lookup goes through the stored one-way hash; the plaintext never touches
// the database.
func Authenticate(ctx context.Context, rawKey string, apiID uuid.UUID) (*models.ApiKeys, error) {
	if rawKey == "" {
		return nil, lib.ErrUnauthorized("API key required")
	}

	hashed := lib.HashKey(rawKey)

	var apiKey models.ApiKeys
	err := lib.DB().WithContext(ctx).Where("key_hash = ?", hashed).First(&apiKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lib.ErrUnauthorized("Invalid API key")
	}
	if err != nil {
		return nil, lib.ErrInternal("Internal Server Error")
	}

	if subtle.ConstantTimeCompare([]byte(hashed), []byte(apiKey.KeyHash)) != 1 {
		return nil, lib.ErrUnauthorized("Invalid API key")
	}
	if apiKey.Status != models.Active {
		return nil, lib.ErrUnauthorized("Invalid or inactive API key")
	}
	if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
		return nil, lib.ErrUnauthorized("API key expired")
	}
	if apiKey.ApiID != apiID {
		return nil, lib.ErrForbidden("API key not valid for this API")
	}

	return &apiKey, nil
}
