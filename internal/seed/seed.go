// Package seed bootstraps catalog rows needed for a fresh install.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fleetbill/internal/config"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	"gorm.io/gorm"
)

const defaultPlanName = "Starter"

// EnsureDefaultPlan inserts the starter plan when the catalog holds no
// default. Existing catalogs are left untouched.
func EnsureDefaultPlan(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&plandomain.PricingPlan{}).
			Where("is_default = ?", true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := tx.NowFunc()
		plan := &plandomain.PricingPlan{
			ID:                    node.Generate(),
			Name:                  defaultPlanName,
			BaseMonthlyPrice:      decimal.NewFromInt(49),
			Currency:              cfg.Billing.Currency,
			IncludedCPUCores:      4,
			IncludedMemoryGB:      8,
			IncludedStorageGB:     100,
			OverageCPUCorePrice:   decimal.NewFromInt(5),
			OverageMemoryGBPrice:  decimal.NewFromInt(2),
			OverageStorageGBPrice: decimal.RequireFromString("0.10"),
			BillingCycle:          plandomain.BillingCycleMonthly,
			IsActive:              true,
			IsDefault:             true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		return tx.Create(plan).Error
	})
}
