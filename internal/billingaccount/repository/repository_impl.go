package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct{}

type Params struct {
	fx.In
}

func New(p Params) accountdomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, account *accountdomain.BillingAccount) error {
	return tx.WithContext(ctx).Create(account).Error
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, account *accountdomain.BillingAccount) error {
	return tx.WithContext(ctx).Save(account).Error
}

func (r *repository) FindByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*accountdomain.BillingAccount, error) {
	var account accountdomain.BillingAccount
	err := tx.WithContext(ctx).Where("company_id = ?", companyID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) LockByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*accountdomain.BillingAccount, error) {
	var account accountdomain.BillingAccount
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ?", companyID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListBillable(ctx context.Context, tx *gorm.DB) ([]accountdomain.BillingAccount, error) {
	var accounts []accountdomain.BillingAccount
	err := tx.WithContext(ctx).
		Where("plan_id IS NOT NULL").
		Order("company_id ASC").
		Find(&accounts).Error
	return accounts, err
}
