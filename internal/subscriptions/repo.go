package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
)

// Repository handles agency subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.AgencySubscription) error
	FindByAgency(ctx context.Context, agencyID uuid.UUID) (*models.AgencySubscription, error)
	// UpdateVersioned applies the plan change only if the stored version still
	// matches sub.Version. It reports whether a row was updated.
	UpdateVersioned(ctx context.Context, sub *models.AgencySubscription) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.AgencySubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) FindByAgency(ctx context.Context, agencyID uuid.UUID) (*models.AgencySubscription, error) {
	var sub models.AgencySubscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("agency_id = ?", agencyID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpdateVersioned(ctx context.Context, sub *models.AgencySubscription) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AgencySubscription{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]any{
			"plan_id":       sub.PlanID,
			"billing_cycle": sub.BillingCycle,
			"starts_at":     sub.StartsAt,
			"ends_at":       sub.EndsAt,
			"version":       sub.Version + 1,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	sub.Version++
	return true, nil
}

// CycleEndFor derives the end of a paid cycle that starts now. Free plans
// have no end; the caller passes a nil override for them.
func CycleEndFor(start time.Time, cycle enums.BillingCycle) time.Time {
	if cycle == enums.BillingCycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}
