// Package domain contains persistence models for the pricing catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BillingCycle is the recurrence unit a plan bills on.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly:
		return true
	}
	return false
}

// Months returns the number of calendar months in one cycle.
func (c BillingCycle) Months() int {
	switch c {
	case BillingCycleQuarterly:
		return 3
	case BillingCycleYearly:
		return 12
	default:
		return 1
	}
}

// Advance moves a period boundary forward by exactly one cycle.
func (c BillingCycle) Advance(t time.Time) time.Time {
	return t.AddDate(0, c.Months(), 0)
}

// PricingPlan defines included allowances and overage unit prices.
// A plan referenced by any invoice is immutable; price changes ship as a
// successor plan so historical invoices stay reproducible.
type PricingPlan struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Name string       `gorm:"type:text;not null"`

	BaseMonthlyPrice decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency         string          `gorm:"type:text;not null"`

	IncludedCPUCores  int64 `gorm:"not null"`
	IncludedMemoryGB  int64 `gorm:"not null"`
	IncludedStorageGB int64 `gorm:"not null"`

	OverageCPUCorePrice   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	OverageMemoryGBPrice  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	OverageStorageGBPrice decimal.Decimal `gorm:"type:numeric(18,2);not null"`

	BillingCycle BillingCycle `gorm:"type:text;not null"`
	IsActive     bool         `gorm:"not null;default:true"`
	IsDefault    bool         `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PricingPlan) TableName() string { return "pricing_plans" }
