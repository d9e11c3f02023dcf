package lib

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaygate/relaygate/models"
	"gorm.io/gorm"
)

func findActiveSubscription(db *gorm.DB, accountID uuid.UUID) (*models.Subscriptions, error) {
	var sub models.Subscriptions
	err := db.Preload("Plan").
		Where("account_id = ? AND status = ?", accountID, models.SubscriptionActive).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActiveSubscription returns the account's active subscription with its plan,
// or nil when there is none. A subscription whose end date has passed is
// lazily marked expired on read.
func ActiveSubscription(db *gorm.DB, accountID uuid.UUID) (*models.Subscriptions, error) {
	sub, err := findActiveSubscription(db, accountID)
	if err != nil || sub == nil {
		return sub, err
	}

	if sub.EndDate != nil && sub.EndDate.Before(time.Now()) {
		if err := db.Model(&models.Subscriptions{}).
			Where("id = ?", sub.Id).
			Update("status", models.SubscriptionExpired).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sub, nil
}

func activePlan(db *gorm.DB, planID uuid.UUID) (*models.Plans, error) {
	var plan models.Plans
	err := db.Where("id = ? AND status = ?", planID, models.Active).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewAppError("Invalid or inactive plan", 400)
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func Subscribe(db *gorm.DB, accountID, planID uuid.UUID) (*models.Subscriptions, error) {
	existing, err := ActiveSubscription(db, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewAppError("Account already has an active subscription", 400)
	}

	if _, err := activePlan(db, planID); err != nil {
		return nil, err
	}

	sub := models.Subscriptions{
		AccountID: accountID,
		PlanID:    planID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now(),
	}
	if err := db.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpgradePlan expires the current subscription and creates the new one inside
// one transaction, so the account never observes zero or two active
// subscriptions.
func UpgradePlan(db *gorm.DB, accountID, newPlanID uuid.UUID) (*models.Subscriptions, error) {
	current, err := ActiveSubscription(db, accountID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound("No active subscription found to upgrade")
	}

	newPlan, err := activePlan(db, newPlanID)
	if err != nil {
		return nil, err
	}

	if newPlan.MonthlyRequestLimit < current.Plan.MonthlyRequestLimit {
		usage, err := MonthlyUsageTotal(db, accountID, MonthStart(time.Now()))
		if err != nil {
			return nil, err
		}
		if usage > newPlan.MonthlyRequestLimit {
			return nil, NewAppError(
				fmt.Sprintf("Cannot downgrade: current usage (%d) exceeds new plan limit (%d)",
					usage, newPlan.MonthlyRequestLimit), 400)
		}
	}

	var created models.Subscriptions
	now := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscriptions{}).
			Where("id = ?", current.Id).
			Updates(map[string]interface{}{
				"status":   models.SubscriptionExpired,
				"end_date": now,
			}).Error; err != nil {
			return err
		}

		created = models.Subscriptions{
			AccountID: accountID,
			PlanID:    newPlanID,
			Status:    models.SubscriptionActive,
			StartDate: now,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func CancelSubscription(db *gorm.DB, accountID uuid.UUID) error {
	current, err := ActiveSubscription(db, accountID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound("No active subscription found")
	}

	return db.Model(&models.Subscriptions{}).
		Where("id = ?", current.Id).
		Updates(map[string]interface{}{
			"status":   models.SubscriptionCancelled,
			"end_date": time.Now(),
		}).Error
}

// MonthStart is the first instant of the calendar month in UTC, the fixed
// reference timezone for quota accounting.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func MonthlyUsageTotal(db *gorm.DB, accountID uuid.UUID, month time.Time) (int64, error) {
	var total int64
	err := db.Model(&models.MonthlyUsage{}).
		Where("account_id = ? AND month = ?", accountID, month).
		Select("COALESCE(SUM(total_requests), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
