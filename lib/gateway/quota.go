package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/models"
)

// CheckQuota admits a call only while the account's month-to-date usage is
// below its plan ceiling. It runs before the per-second rate check and before
// any byte is sent upstream; an account without an active subscription cannot
// proxy at all.
func CheckQuota(ctx context.Context, accountID uuid.UUID) (*models.Subscriptions, error) {
	db := lib.DB().WithContext(ctx)

	sub, err := lib.ActiveSubscription(db, accountID)
	if err != nil {
		var appErr *lib.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, lib.ErrInternal("Internal Server Error")
	}
	if sub == nil {
		return nil, lib.ErrForbidden("No active subscription found")
	}

	usage, err := lib.MonthlyUsageTotal(db, accountID, lib.MonthStart(time.Now()))
	if err != nil {
		return nil, lib.ErrInternal("Internal Server Error")
	}
	if usage >= sub.Plan.MonthlyRequestLimit {
		return nil, lib.ErrQuotaExceeded("Monthly request limit reached")
	}

	return sub, nil
}
