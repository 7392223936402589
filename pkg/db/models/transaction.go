package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
)

// Transaction is an append-only checkout attempt record. ExternalReference
// stays null until the provider confirms; rows are never deleted.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgencyID          uuid.UUID               `gorm:"column:agency_id;type:uuid;not null;index"`
	PlanID            uuid.UUID               `gorm:"column:plan_id;type:uuid;not null"`
	BillingCycle      enums.BillingCycle      `gorm:"column:billing_cycle;not null"`
	Amount            int64                   `gorm:"column:amount;not null"`
	Currency          enums.Currency          `gorm:"column:currency;not null;default:'XOF'"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	ProviderName      enums.PaymentProvider   `gorm:"column:provider_name;not null"`
	Status            enums.TransactionStatus `gorm:"column:status;not null;default:'pending';index"`
	ExternalReference *string                 `gorm:"column:external_reference;index"`
	FailureReason     *string                 `gorm:"column:failure_reason"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	CompletedAt       *time.Time              `gorm:"column:completed_at"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
