package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
)

// SubscriptionPlan is a sellable plan. Prices are stored in the smallest
// currency unit; administrative edits never retroactively change prorations
// already computed against the old prices.
type SubscriptionPlan struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string         `gorm:"column:name;not null;uniqueIndex"`
	PriceMonthly    int64          `gorm:"column:price_monthly;not null;default:0"`
	PriceYearly     int64          `gorm:"column:price_yearly;not null;default:0"`
	BillingCurrency enums.Currency `gorm:"column:billing_currency;not null;default:'XOF'"`
	IsDefault       bool           `gorm:"column:is_default;not null;default:false"`
	Features        pq.StringArray `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the plan price for the given billing cycle.
func (p SubscriptionPlan) PriceFor(cycle enums.BillingCycle) int64 {
	if cycle == enums.BillingCycleYearly {
		return p.PriceYearly
	}
	return p.PriceMonthly
}

// IsFree reports whether the plan costs nothing on the given cycle.
func (p SubscriptionPlan) IsFree(cycle enums.BillingCycle) bool {
	return p.PriceFor(cycle) == 0
}
