package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	accountrepo "github.com/smallbiznis/fleetbill/internal/billingaccount/repository"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	planrepo "github.com/smallbiznis/fleetbill/internal/plan/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (accountdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&accountdomain.BillingAccount{}, &plandomain.PricingPlan{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     accountrepo.New(accountrepo.Params{}),
		PlanRepo: planrepo.New(planrepo.Params{}),
	})
	return svc, db, node
}

func seedPlan(t *testing.T, db *gorm.DB, node *snowflake.Node, active bool) *plandomain.PricingPlan {
	t.Helper()
	plan := &plandomain.PricingPlan{
		ID:               node.Generate(),
		Name:             "Starter",
		BaseMonthlyPrice: decimal.NewFromInt(49),
		Currency:         "USD",
		BillingCycle:     plandomain.BillingCycleMonthly,
		IsActive:         active,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func TestCreate(t *testing.T) {
	svc, _, node := newService(t)
	ctx := context.Background()
	companyID := node.Generate()

	_, err := svc.Create(ctx, accountdomain.CreateAccountRequest{
		CompanyID:    companyID.String(),
		BillingEmail: "not-an-email",
	})
	assert.ErrorIs(t, err, accountdomain.ErrInvalidEmail)

	account, err := svc.Create(ctx, accountdomain.CreateAccountRequest{
		CompanyID:    companyID.String(),
		BillingEmail: "billing@example.com",
	})
	require.NoError(t, err)
	assert.Nil(t, account.PlanID, "accounts start without a plan")

	_, err = svc.Create(ctx, accountdomain.CreateAccountRequest{
		CompanyID:    companyID.String(),
		BillingEmail: "billing@example.com",
	})
	assert.ErrorIs(t, err, accountdomain.ErrAccountExists)
}

func TestAssignPlan(t *testing.T) {
	svc, db, node := newService(t)
	ctx := context.Background()
	plan := seedPlan(t, db, node, true)
	retired := seedPlan(t, db, node, false)
	companyID := node.Generate()

	_, err := svc.Create(ctx, accountdomain.CreateAccountRequest{
		CompanyID:    companyID.String(),
		BillingEmail: "billing@example.com",
	})
	require.NoError(t, err)

	account, err := svc.AssignPlan(ctx, companyID.String(), plan.ID.String())
	require.NoError(t, err)
	require.NotNil(t, account.PlanID)
	assert.Equal(t, plan.ID, *account.PlanID)

	_, err = svc.AssignPlan(ctx, companyID.String(), retired.ID.String())
	assert.ErrorIs(t, err, plandomain.ErrNotFound, "inactive plans cannot be assigned")

	// Clearing the plan makes the company non-billable again.
	account, err = svc.AssignPlan(ctx, companyID.String(), "")
	require.NoError(t, err)
	assert.Nil(t, account.PlanID)
}

func TestSetGatewayCustomer(t *testing.T) {
	svc, _, node := newService(t)
	ctx := context.Background()
	companyID := node.Generate()

	_, err := svc.Create(ctx, accountdomain.CreateAccountRequest{
		CompanyID:    companyID.String(),
		BillingEmail: "billing@example.com",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetGatewayCustomer(ctx, companyID.String(), "  "),
		accountdomain.ErrInvalidCustomerRef)
	require.NoError(t, svc.SetGatewayCustomer(ctx, companyID.String(), "cus_123"))

	account, err := svc.GetByCompany(ctx, companyID.String())
	require.NoError(t, err)
	require.NotNil(t, account.GatewayCustomerRef)
	assert.Equal(t, "cus_123", *account.GatewayCustomerRef)
}
