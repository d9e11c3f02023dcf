package gateway

import (
	"context"
	"time"

	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Call is what the recorder persists about one proxied attempt.
type Call struct {
	Endpoint   string
	Method     string
	StatusCode int
	Duration   time.Duration
}

// countsTowardQuota decides which upstream outcomes consume the monthly
// allowance. Only non-error responses count; whether upstream 4xx should bill
// the tenant is a product policy, not a technical constraint.
func countsTowardQuota(statusCode int) bool {
	return statusCode < 400
}

// Record appends the call to the usage log and bumps the monthly aggregate in
// one transaction. It runs after the response is already decided; failures
// here are the caller's to log, never to surface.
func Record(ctx context.Context, api *models.Apis, apiKey *models.ApiKeys, call Call) error {
	return lib.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lib.GetConfig().Settings.UsageLog.Enabled {
			entry := models.UsageLogs{
				ApiID:          api.Id,
				ApiKeyID:       apiKey.Id,
				Endpoint:       call.Endpoint,
				Method:         call.Method,
				StatusCode:     call.StatusCode,
				ResponseTimeMs: call.Duration.Milliseconds(),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		if !countsTowardQuota(call.StatusCode) {
			return nil
		}

		usage := models.MonthlyUsage{
			AccountID:     api.AccountID,
			ApiID:         api.Id,
			Month:         lib.MonthStart(time.Now()),
			TotalRequests: 1,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "api_id"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_requests": gorm.Expr("monthly_usages.total_requests + 1"),
				"updated_at":     time.Now(),
			}),
		}).Create(&usage).Error
	})
}
