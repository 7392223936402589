package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
)

// AgencySubscription is the single active subscription of an agency. EndsAt
// null means open-ended (free plan or auto-renewing cycle). Version guards
// concurrent plan changes: updates must match the version they read.
type AgencySubscription struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgencyID     uuid.UUID          `gorm:"column:agency_id;type:uuid;not null;uniqueIndex"`
	PlanID       uuid.UUID          `gorm:"column:plan_id;type:uuid;not null"`
	Plan         *SubscriptionPlan  `gorm:"foreignKey:PlanID"`
	BillingCycle enums.BillingCycle `gorm:"column:billing_cycle;not null;default:'monthly'"`
	StartsAt     time.Time          `gorm:"column:starts_at;not null"`
	EndsAt       *time.Time         `gorm:"column:ends_at"`
	Version      int64              `gorm:"column:version;not null;default:1"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
