// Package domain contains persistence models for company billing accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingAccount links a company to its pricing plan and payment gateway
// identity. PlanID nil means the company is not billable; estimate and
// invoice paths surface that as "not billable", never as an error.
type BillingAccount struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	CompanyID          snowflake.ID  `gorm:"not null;uniqueIndex"`
	PlanID             *snowflake.ID `gorm:"index"`
	GatewayCustomerRef *string       `gorm:"type:text"`
	BillingEmail       string        `gorm:"type:text;not null"`
	NextBillingDate    *time.Time    `gorm:""`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingAccount) TableName() string { return "billing_accounts" }
