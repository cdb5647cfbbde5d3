package models

import (
	"time"

	"gorm.io/datatypes"
)

// OrderStatus tracks a checkout attempt through payment.
type OrderStatus string

// OrderStatus values.
const (
	// OrderStatusPending waits for the payment to settle.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusSucceeded means payment completed and the box was persisted.
	OrderStatusSucceeded OrderStatus = "succeeded"
	// OrderStatusCanceled means the buyer backed out.
	OrderStatusCanceled OrderStatus = "canceled"
	// OrderStatusFailed means the payment collaborator rejected the attempt.
	OrderStatusFailed OrderStatus = "failed"
	// OrderStatusAbandoned means the attempt sat pending past the abandon window.
	OrderStatusAbandoned OrderStatus = "abandoned"
)

// Order is one checkout attempt for a draft.
type Order struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID assigned at checkout start.

	PaymentIntentID *string     `gorm:"type:varchar(255);uniqueIndex"`          // Payment collaborator reference.
	Email           string      `gorm:"type:varchar(320);not null"`              // Contact email.
	Tier            string      `gorm:"type:varchar(32);not null"`               // Tier quoted at checkout start.
	AmountCents     int64       `gorm:"not null"`                                // Amount charged, in cents.
	Currency        string      `gorm:"type:varchar(8);not null;default:'usd'"`  // ISO currency code.
	Status          OrderStatus `gorm:"type:varchar(16);not null;index"`         // Current status.
	FailureReason   string      `gorm:"type:text"`                               // Last upstream error, if any.

	Draft datatypes.JSON `gorm:"type:jsonb;not null"` // Snapshot of the draft being purchased.

	GiftBoxID *uint64 `gorm:"index"` // Persisted box, once the payment completes.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
	CompletedAt *time.Time // Payment completion time.
}
