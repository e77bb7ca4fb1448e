package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name                  string          `json:"name"`
	BaseMonthlyPrice      decimal.Decimal `json:"base_monthly_price"`
	Currency              string          `json:"currency"`
	IncludedCPUCores      int64           `json:"included_cpu_cores"`
	IncludedMemoryGB      int64           `json:"included_memory_gb"`
	IncludedStorageGB     int64           `json:"included_storage_gb"`
	OverageCPUCorePrice   decimal.Decimal `json:"overage_cpu_core_price"`
	OverageMemoryGBPrice  decimal.Decimal `json:"overage_memory_gb_price"`
	OverageStorageGBPrice decimal.Decimal `json:"overage_storage_gb_price"`
	BillingCycle          BillingCycle    `json:"billing_cycle"`
	IsDefault             bool            `json:"is_default"`
}

type UpdatePlanRequest struct {
	ID       string `json:"id"`
	Name     *string
	IsActive *bool
}

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*PricingPlan, error)
	Update(ctx context.Context, req UpdatePlanRequest) (*PricingPlan, error)
	GetByID(ctx context.Context, id string) (*PricingPlan, error)
	GetDefault(ctx context.Context) (*PricingPlan, error)
	ListActive(ctx context.Context) ([]PricingPlan, error)
	Deactivate(ctx context.Context, id string) error
}

var (
	ErrInvalidID           = errors.New("invalid_plan_id")
	ErrInvalidName         = errors.New("invalid_plan_name")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidBillingCycle = errors.New("invalid_billing_cycle")
	ErrNegativeAllowance   = errors.New("negative_allowance")
	ErrNegativePrice       = errors.New("negative_price")
	ErrNotFound            = errors.New("plan_not_found")
	ErrNoDefaultPlan       = errors.New("no_default_plan")
	ErrPlanInUse           = errors.New("plan_referenced_by_invoice")
)
