package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
)

// WithdrawalRequest is an agency's instruction to move received funds to its
// mobile-money account. Created pending; cancelable only while pending.
type WithdrawalRequest struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgencyID        uuid.UUID              `gorm:"column:agency_id;type:uuid;not null;index"`
	Amount          int64                  `gorm:"column:amount;not null"`
	RecipientPhone  string                 `gorm:"column:recipient_phone;not null"`
	RecipientName   *string                `gorm:"column:recipient_name"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;not null"`
	Status          enums.WithdrawalStatus `gorm:"column:status;not null;default:'pending';index"`
	Notes           *string                `gorm:"column:notes"`
	FailureReason   *string                `gorm:"column:failure_reason"`
	PayoutReference *string                `gorm:"column:payout_reference"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt     *time.Time             `gorm:"column:processed_at"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
