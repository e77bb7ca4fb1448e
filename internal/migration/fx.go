package migration

import (
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	"github.com/smallbiznis/fleetbill/internal/config"
	inventorydomain "github.com/smallbiznis/fleetbill/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	"github.com/smallbiznis/fleetbill/internal/seed"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	subscriptiondomain "github.com/smallbiznis/fleetbill/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := autoMigrate(conn); err != nil {
			return err
		}

		return seed.EnsureDefaultPlan(conn, cfg)
	}),
)

// autoMigrate covers sqlite and mysql installs, where the embedded
// postgres migrations do not apply. The partial unique index has no
// gorm tag equivalent so it is created by hand.
func autoMigrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&plandomain.PricingPlan{},
		&accountdomain.BillingAccount{},
		&inventorydomain.VM{},
		&snapshotdomain.ResourceSnapshot{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&subscriptiondomain.CompanySubscription{},
	)
	if err != nil {
		return err
	}
	if conn.Dialector.Name() != "sqlite" {
		// MySQL has no partial indexes; the invoice service's row lock
		// plus the non-void lookup carries the idempotency guarantee
		// there on its own.
		return nil
	}
	return conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_company_period_active
		ON invoices (company_id, period_start) WHERE status != 'void'`).Error
}
