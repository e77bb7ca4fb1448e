package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, plan *PricingPlan) error
	Update(ctx context.Context, tx *gorm.DB, plan *PricingPlan) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*PricingPlan, error)
	FindDefault(ctx context.Context, tx *gorm.DB) (*PricingPlan, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]PricingPlan, error)
}
