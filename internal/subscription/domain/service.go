package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// MaxErrorSamples bounds the message lists carried by sweep results.
// The counters stay exact; the messages are a sample for logs.
const MaxErrorSamples = 50

func appendBounded(errs []string, msg string) []string {
	if len(errs) >= MaxErrorSamples {
		return errs
	}
	return append(errs, msg)
}

// ChargeResult summarizes one renewal sweep. Processed counts every
// claimed subscription; Charged and Failed partition it.
type ChargeResult struct {
	Processed int      `json:"processed"`
	Charged   int      `json:"charged"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *ChargeResult) AppendError(msg string) { r.Errors = appendBounded(r.Errors, msg) }

// ReconcileResult summarizes a past-due reconciliation sweep.
type ReconcileResult struct {
	Checked   int      `json:"checked"`
	Suspended int      `json:"suspended"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *ReconcileResult) AppendError(msg string) { r.Errors = appendBounded(r.Errors, msg) }

// CancelResult summarizes a grace-expiry cancellation sweep.
type CancelResult struct {
	Candidates int      `json:"candidates"`
	Cancelled  int      `json:"cancelled"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

func (r *CancelResult) AppendError(msg string) { r.Errors = appendBounded(r.Errors, msg) }

type StartSubscriptionRequest struct {
	CompanyID              snowflake.ID
	PlanID                 snowflake.ID
	Trial                  bool
	GatewaySubscriptionRef string
}

type Service interface {
	Start(ctx context.Context, req StartSubscriptionRequest) (*CompanySubscription, error)
	GetByCompany(ctx context.Context, companyID snowflake.ID) (*CompanySubscription, error)
	// ProcessCharges renews every due active subscription. One
	// subscription's gateway failure suspends it and is recorded; the
	// sweep continues. A missing gateway configuration fails the whole
	// invocation with ErrGatewayNotConfigured.
	ProcessCharges(ctx context.Context) (ChargeResult, error)
	CheckPastDue(ctx context.Context) (ReconcileResult, error)
	CancelPastDue(ctx context.Context) (CancelResult, error)
}

var (
	ErrSubscriptionExists   = errors.New("subscription_exists")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrGatewayNotConfigured = errors.New("gateway_not_configured_for_charges")
)
