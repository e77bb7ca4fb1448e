// Package domain contains the company subscription model and the
// charge processor contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus is the local lifecycle state. Transitions owned
// here: active renewal, active to suspended, suspended to cancelled.
// Trial activation and suspended-to-active resume belong to external
// collaborators.
type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "trial"
	StatusActive    SubscriptionStatus = "active"
	StatusSuspended SubscriptionStatus = "suspended"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// CompanySubscription tracks one company's recurring billing period.
// The charge processor is the single writer for automated transitions;
// admin paths go through the same row lock discipline.
type CompanySubscription struct {
	ID                     snowflake.ID       `gorm:"primaryKey"`
	CompanyID              snowflake.ID       `gorm:"not null;uniqueIndex"`
	PlanID                 snowflake.ID       `gorm:"not null;index"`
	Status                 SubscriptionStatus `gorm:"type:text;not null;index"`
	CurrentPeriodStart     time.Time          `gorm:"not null"`
	CurrentPeriodEnd       time.Time          `gorm:"not null;index"`
	GatewaySubscriptionRef *string            `gorm:"type:text"`
	LastChargedAt          *time.Time         `gorm:""`
	LastAttemptAt          *time.Time         `gorm:""`
	CancelledAt            *time.Time         `gorm:""`
	CreatedAt              time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CompanySubscription) TableName() string { return "company_subscriptions" }
