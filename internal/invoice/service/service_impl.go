package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	ratingdomain "github.com/smallbiznis/fleetbill/internal/rating/domain"
	"github.com/smallbiznis/fleetbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        invoicedomain.Repository
	AccountRepo accountdomain.Repository
	PlanRepo    plandomain.Repository
	Rating      ratingdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        invoicedomain.Repository
	accountRepo accountdomain.Repository
	planRepo    plandomain.Repository
	rating      ratingdomain.Service
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		planRepo:    p.PlanRepo,
		rating:      p.Rating,
	}
}

// Generate produces one company's invoice for the given month. The
// estimate runs before the transaction; it only reads the snapshot
// ledger and the plan, so holding the account lock across it would
// serialize generation for nothing.
func (s *Service) Generate(ctx context.Context, companyID snowflake.ID, month time.Time, initiatedBy string) (*invoicedomain.GenerateOutcome, error) {
	estimate, err := s.rating.EstimateMonth(ctx, companyID, month)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		// Not billable.
		return nil, nil
	}

	var outcome *invoicedomain.GenerateOutcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.LockByCompany(ctx, tx, companyID)
		if err != nil {
			return err
		}
		if account == nil || account.PlanID == nil {
			// The account lost its plan between estimate and lock.
			outcome = nil
			return nil
		}

		existing, err := s.repo.FindActiveByPeriod(ctx, tx, companyID, estimate.PeriodStart)
		if err != nil {
			return err
		}
		if existing != nil {
			outcome = &invoicedomain.GenerateOutcome{Invoice: existing, AlreadyExists: true}
			return nil
		}

		inv, items, err := s.buildInvoice(estimate, initiatedBy)
		if err != nil {
			return err
		}
		if err := s.repo.InsertWithItems(ctx, tx, inv, items); err != nil {
			return err
		}
		outcome = &invoicedomain.GenerateOutcome{Invoice: inv}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race with a concurrent generator; the winner's
			// invoice is the answer.
			existing, ferr := s.repo.FindActiveByPeriod(ctx, s.db, companyID, estimate.PeriodStart)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return &invoicedomain.GenerateOutcome{Invoice: existing, AlreadyExists: true}, nil
			}
		}
		return nil, err
	}

	if outcome != nil && !outcome.AlreadyExists {
		s.log.Info("invoice generated",
			zap.String("company_id", companyID.String()),
			zap.String("invoice_id", outcome.Invoice.ID.String()),
			zap.String("total", outcome.Invoice.Total.StringFixed(2)),
		)
	}
	return outcome, nil
}

func (s *Service) buildInvoice(estimate *ratingdomain.BillEstimate, initiatedBy string) (*invoicedomain.Invoice, []invoicedomain.InvoiceLineItem, error) {
	now := time.Now().UTC()
	inv := &invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		CompanyID:   estimate.CompanyID,
		PlanID:      estimate.PlanID,
		PeriodStart: estimate.PeriodStart,
		PeriodEnd:   estimate.PeriodEnd,
		Status:      invoicedomain.InvoiceStatusDraft,
		Currency:    estimate.Currency,
		Subtotal:    estimate.Subtotal,
		Total:       estimate.Total,
		InitiatedBy: initiatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items := []invoicedomain.InvoiceLineItem{{
		ID:          s.genID.Generate(),
		InvoiceID:   inv.ID,
		Kind:        invoicedomain.LineItemBaseFee,
		Description: fmt.Sprintf("%s plan base fee", estimate.PlanName),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   estimate.BaseFee,
		Amount:      estimate.BaseFee,
		CreatedAt:   now,
	}}
	items = s.appendOverageItem(items, inv.ID, invoicedomain.LineItemCPUOverage, "CPU cores over plan allowance", estimate.CPU, now)
	items = s.appendOverageItem(items, inv.ID, invoicedomain.LineItemMemoryOverage, "Memory GB over plan allowance", estimate.Memory, now)
	items = s.appendOverageItem(items, inv.ID, invoicedomain.LineItemStorageOverage, "Storage GB over plan allowance", estimate.Storage, now)

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}
	if !sum.Equal(inv.Subtotal) {
		return nil, nil, invoicedomain.ErrLineItemsMismatch
	}
	return inv, items, nil
}

func (s *Service) appendOverageItem(items []invoicedomain.InvoiceLineItem, invoiceID snowflake.ID, kind invoicedomain.LineItemKind, description string, usage ratingdomain.DimensionUsage, now time.Time) []invoicedomain.InvoiceLineItem {
	if !usage.OverageAmount.IsPositive() {
		return items
	}
	return append(items, invoicedomain.InvoiceLineItem{
		ID:          s.genID.Generate(),
		InvoiceID:   invoiceID,
		Kind:        kind,
		Description: description,
		Quantity:    usage.OverageUnits,
		UnitPrice:   usage.UnitPrice,
		Amount:      usage.OverageAmount,
		CreatedAt:   now,
	})
}

// GenerateMonthlyInvoices sweeps every billable account. Companies on
// quarterly or yearly cycles are skipped in months where their cycle
// is not due; a single company's failure is recorded and the sweep
// continues.
func (s *Service) GenerateMonthlyInvoices(ctx context.Context, month time.Time) (invoicedomain.BatchResult, error) {
	var result invoicedomain.BatchResult

	accounts, err := s.accountRepo.ListBillable(ctx, s.db)
	if err != nil {
		return result, err
	}
	result.Companies = len(accounts)

	periodStart := ratingdomain.MonthStart(month)
	for _, account := range accounts {
		due, err := s.cycleDue(ctx, account, periodStart)
		if err != nil {
			result.Failed++
			result.AppendError(fmt.Sprintf("company %s: %v", account.CompanyID, err))
			continue
		}
		if !due {
			result.NotDue++
			continue
		}

		outcome, err := s.Generate(ctx, account.CompanyID, periodStart, "system")
		switch {
		case err != nil:
			result.Failed++
			result.AppendError(fmt.Sprintf("company %s: %v", account.CompanyID, err))
			s.log.Warn("invoice generation failed",
				zap.String("company_id", account.CompanyID.String()),
				zap.Error(err),
			)
		case outcome == nil:
			result.NotBillable++
		case outcome.AlreadyExists:
			result.AlreadyExisted++
		default:
			result.Created++
		}
	}

	s.log.Info("monthly invoice sweep finished",
		zap.Time("period_start", periodStart),
		zap.Int("companies", result.Companies),
		zap.Int("created", result.Created),
		zap.Int("already_existed", result.AlreadyExisted),
		zap.Int("not_due", result.NotDue),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// cycleDue reports whether the account's billing cycle lands on the
// given month. Monthly plans are always due. Longer cycles are
// anchored on the subscription's current period start when one exists,
// falling back to the month the account was created.
func (s *Service) cycleDue(ctx context.Context, account accountdomain.BillingAccount, periodStart time.Time) (bool, error) {
	if account.PlanID == nil {
		return false, nil
	}
	plan, err := s.planRepo.FindByID(ctx, s.db, *account.PlanID)
	if err != nil {
		return false, err
	}
	if plan == nil {
		return false, ratingdomain.ErrPlanMissing
	}
	if plan.BillingCycle == plandomain.BillingCycleMonthly {
		return true, nil
	}

	anchor := account.CreatedAt
	var subStart sql.NullTime
	err = s.db.WithContext(ctx).
		Raw(`SELECT current_period_start FROM company_subscriptions
		     WHERE company_id = ? AND status IN ('trial', 'active')
		     ORDER BY current_period_start DESC LIMIT 1`, account.CompanyID).
		Scan(&subStart).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if subStart.Valid {
		anchor = subStart.Time
	}

	anchorMonth := ratingdomain.MonthStart(anchor)
	months := (periodStart.Year()-anchorMonth.Year())*12 + int(periodStart.Month()-anchorMonth.Month())
	if months < 0 {
		return false, nil
	}
	return months%plan.BillingCycle.Months() == 0, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, []invoicedomain.InvoiceLineItem, error) {
	inv, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	if inv == nil {
		return nil, nil, invoicedomain.ErrInvoiceNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	return inv, items, nil
}

func (s *Service) ListByCompany(ctx context.Context, companyID snowflake.ID, limit int) ([]invoicedomain.Invoice, error) {
	return s.repo.ListByCompany(ctx, s.db, companyID, limit)
}

func (s *Service) MarkIssued(ctx context.Context, id snowflake.ID) error {
	return s.transition(ctx, id, invoicedomain.InvoiceStatusIssued)
}

func (s *Service) MarkSent(ctx context.Context, id snowflake.ID) error {
	return s.transition(ctx, id, invoicedomain.InvoiceStatusSent)
}

func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID) error {
	return s.transition(ctx, id, invoicedomain.InvoiceStatusPaid)
}

func (s *Service) Void(ctx context.Context, id snowflake.ID) error {
	return s.transition(ctx, id, invoicedomain.InvoiceStatusVoid)
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, target invoicedomain.InvoiceStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if !inv.Status.CanTransition(target) {
			return invoicedomain.ErrInvalidTransition
		}
		inv.Status = target
		inv.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, inv)
	})
}
