package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type repository struct{}

type Params struct {
	fx.In
}

func New(p Params) plandomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, plan *plandomain.PricingPlan) error {
	return tx.WithContext(ctx).Create(plan).Error
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, plan *plandomain.PricingPlan) error {
	return tx.WithContext(ctx).Save(plan).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*plandomain.PricingPlan, error) {
	var plan plandomain.PricingPlan
	err := tx.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindDefault(ctx context.Context, tx *gorm.DB) (*plandomain.PricingPlan, error) {
	var plan plandomain.PricingPlan
	err := tx.WithContext(ctx).Where("is_default = ? AND is_active = ?", true, true).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListActive(ctx context.Context, tx *gorm.DB) ([]plandomain.PricingPlan, error) {
	var plans []plandomain.PricingPlan
	err := tx.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&plans).Error
	return plans, err
}
