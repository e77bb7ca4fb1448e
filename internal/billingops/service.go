// Package billingops is the caller-facing facade over the billing
// engine. Expected business states (no plan, invoice already exists)
// come back as typed result kinds, never as bare errors; the HTTP or
// CLI layer consuming this package maps kinds to responses directly.
package billingops

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	ratingdomain "github.com/smallbiznis/fleetbill/internal/rating/domain"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ResultKind string

const (
	KindEstimate      ResultKind = "estimate"
	KindNotBillable   ResultKind = "not_billable"
	KindCreated       ResultKind = "created"
	KindAlreadyExists ResultKind = "already_exists"
)

type EstimateResult struct {
	Kind     ResultKind                `json:"kind"`
	Estimate *ratingdomain.BillEstimate `json:"estimate,omitempty"`
}

type VMCostsResult struct {
	Kind ResultKind            `json:"kind"`
	VMs  []ratingdomain.VMCost `json:"vms,omitempty"`
}

type ManualInvoiceResult struct {
	Kind    ResultKind             `json:"kind"`
	Invoice *invoicedomain.Invoice `json:"invoice,omitempty"`
}

// InvoiceSummary is the history row shape for display callers.
type InvoiceSummary struct {
	ID          snowflake.ID                `json:"id"`
	PeriodStart time.Time                   `json:"period_start"`
	PeriodEnd   time.Time                   `json:"period_end"`
	Status      invoicedomain.InvoiceStatus `json:"status"`
	Currency    string                      `json:"currency"`
	Total       decimal.Decimal             `json:"total"`
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Rating    ratingdomain.Service
	Invoices  invoicedomain.Service
	Collector snapshotdomain.Collector
	Snapshots snapshotdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	rating    ratingdomain.Service
	invoices  invoicedomain.Service
	collector snapshotdomain.Collector
	snapshots snapshotdomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billingops"),
		rating:    p.Rating,
		invoices:  p.Invoices,
		collector: p.Collector,
		snapshots: p.Snapshots,
	}
}

var Module = fx.Module("billingops",
	fx.Provide(New),
)

func (s *Service) GetBillingEstimate(ctx context.Context, companyID snowflake.ID, month time.Time) (EstimateResult, error) {
	estimate, err := s.rating.EstimateMonth(ctx, companyID, month)
	if err != nil {
		return EstimateResult{}, err
	}
	if estimate == nil {
		return EstimateResult{Kind: KindNotBillable}, nil
	}
	return EstimateResult{Kind: KindEstimate, Estimate: estimate}, nil
}

func (s *Service) GetVMCosts(ctx context.Context, companyID snowflake.ID, month time.Time) (VMCostsResult, error) {
	estimate, err := s.rating.EstimateMonth(ctx, companyID, month)
	if err != nil {
		return VMCostsResult{}, err
	}
	if estimate == nil {
		return VMCostsResult{Kind: KindNotBillable}, nil
	}
	return VMCostsResult{Kind: KindEstimate, VMs: estimate.VMs}, nil
}

func (s *Service) GetBillingHistory(ctx context.Context, companyID snowflake.ID, limit int) ([]InvoiceSummary, error) {
	invoices, err := s.invoices.ListByCompany(ctx, companyID, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]InvoiceSummary, 0, len(invoices))
	for _, inv := range invoices {
		summaries = append(summaries, InvoiceSummary{
			ID:          inv.ID,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
			Status:      inv.Status,
			Currency:    inv.Currency,
			Total:       inv.Total,
		})
	}
	return summaries, nil
}

func (s *Service) GenerateInvoiceManually(ctx context.Context, companyID snowflake.ID, month time.Time, initiatedBy string) (ManualInvoiceResult, error) {
	outcome, err := s.invoices.Generate(ctx, companyID, month, initiatedBy)
	if err != nil {
		return ManualInvoiceResult{}, err
	}
	if outcome == nil {
		return ManualInvoiceResult{Kind: KindNotBillable}, nil
	}
	if outcome.AlreadyExists {
		return ManualInvoiceResult{Kind: KindAlreadyExists, Invoice: outcome.Invoice}, nil
	}
	return ManualInvoiceResult{Kind: KindCreated, Invoice: outcome.Invoice}, nil
}

// GetVMUsageHistory returns the raw daily readings for one machine,
// the audit view behind a cost dispute.
func (s *Service) GetVMUsageHistory(ctx context.Context, vmID snowflake.ID, from, to time.Time) ([]snapshotdomain.ResourceSnapshot, error) {
	return s.snapshots.ListByVMRange(ctx, s.db, vmID, from, to)
}

func (s *Service) TriggerDailySnapshots(ctx context.Context, day time.Time) (snapshotdomain.CollectResult, error) {
	return s.collector.CollectDailySnapshots(ctx, day)
}

func (s *Service) TriggerMonthlyInvoices(ctx context.Context, month time.Time) (invoicedomain.BatchResult, error) {
	return s.invoices.GenerateMonthlyInvoices(ctx, month)
}
