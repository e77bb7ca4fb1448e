package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, account *BillingAccount) error
	Update(ctx context.Context, tx *gorm.DB, account *BillingAccount) error
	FindByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*BillingAccount, error)
	// LockByCompany loads the account row FOR UPDATE; callers use it to
	// serialize create-check-then-write sequences on the same company.
	LockByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*BillingAccount, error)
	ListBillable(ctx context.Context, tx *gorm.DB) ([]BillingAccount, error)
}
