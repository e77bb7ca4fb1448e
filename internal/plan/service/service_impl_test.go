package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	planrepo "github.com/smallbiznis/fleetbill/internal/plan/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (plandomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&plandomain.PricingPlan{}, &invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  planrepo.New(planrepo.Params{}),
	})
	return svc, db, node
}

func validCreate() plandomain.CreatePlanRequest {
	return plandomain.CreatePlanRequest{
		Name:                  "Starter",
		BaseMonthlyPrice:      decimal.NewFromInt(49),
		Currency:              "usd",
		IncludedCPUCores:      4,
		IncludedMemoryGB:      8,
		IncludedStorageGB:     100,
		OverageCPUCorePrice:   decimal.NewFromInt(5),
		OverageMemoryGBPrice:  decimal.NewFromInt(2),
		OverageStorageGBPrice: decimal.RequireFromString("0.10"),
		BillingCycle:          plandomain.BillingCycleMonthly,
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	req := validCreate()
	req.Name = "  "
	_, err := svc.Create(ctx, req)
	assert.ErrorIs(t, err, plandomain.ErrInvalidName)

	req = validCreate()
	req.Currency = "dollars"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, plandomain.ErrInvalidCurrency)

	req = validCreate()
	req.BillingCycle = "weekly"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, plandomain.ErrInvalidBillingCycle)

	req = validCreate()
	req.IncludedMemoryGB = -1
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, plandomain.ErrNegativeAllowance)

	req = validCreate()
	req.OverageCPUCorePrice = decimal.NewFromInt(-5)
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, plandomain.ErrNegativePrice)

	plan, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.Equal(t, "USD", plan.Currency)
	assert.True(t, plan.IsActive)
}

func TestCreate_SingleDefault(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	req := validCreate()
	req.IsDefault = true
	first, err := svc.Create(ctx, req)
	require.NoError(t, err)

	req = validCreate()
	req.Name = "Pro"
	req.IsDefault = true
	second, err := svc.Create(ctx, req)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&plandomain.PricingPlan{}).
		Where("is_default = ?", true).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	current, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.NotEqual(t, first.ID, current.ID)
}

func TestUpdate_InvoicedPlanIsFrozen(t *testing.T) {
	svc, db, node := newService(t)
	ctx := context.Background()

	plan, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	require.NoError(t, db.Create(&invoicedomain.Invoice{
		ID:          node.Generate(),
		CompanyID:   node.Generate(),
		PlanID:      plan.ID,
		Status:      invoicedomain.InvoiceStatusIssued,
		Currency:    "USD",
		Subtotal:    decimal.NewFromInt(49),
		Total:       decimal.NewFromInt(49),
		InitiatedBy: "system",
	}).Error)

	name := "Starter v2"
	_, err = svc.Update(ctx, plandomain.UpdatePlanRequest{ID: plan.ID.String(), Name: &name})
	assert.ErrorIs(t, err, plandomain.ErrPlanInUse)

	// Deactivation stays possible so the catalog can retire the plan.
	require.NoError(t, svc.Deactivate(ctx, plan.ID.String()))
	got, err := svc.GetByID(ctx, plan.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestGetDefault_NoDefault(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.GetDefault(context.Background())
	assert.ErrorIs(t, err, plandomain.ErrNoDefaultPlan)
}
