package domain

import (
	"context"
	"errors"
)

type CreateAccountRequest struct {
	CompanyID    string `json:"company_id"`
	BillingEmail string `json:"billing_email"`
	PlanID       string `json:"plan_id,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (*BillingAccount, error)
	GetByCompany(ctx context.Context, companyID string) (*BillingAccount, error)
	// AssignPlan is the admin path that makes a company billable. Passing
	// an empty planID clears the assignment.
	AssignPlan(ctx context.Context, companyID, planID string) (*BillingAccount, error)
	SetGatewayCustomer(ctx context.Context, companyID, customerRef string) error
}

var (
	ErrInvalidCompany     = errors.New("invalid_company_id")
	ErrInvalidEmail       = errors.New("invalid_billing_email")
	ErrAccountNotFound    = errors.New("billing_account_not_found")
	ErrAccountExists      = errors.New("billing_account_exists")
	ErrInvalidCustomerRef = errors.New("invalid_gateway_customer_ref")
)
