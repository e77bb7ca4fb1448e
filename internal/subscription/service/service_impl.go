package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	"github.com/smallbiznis/fleetbill/internal/clock"
	"github.com/smallbiznis/fleetbill/internal/config"
	gatewaydomain "github.com/smallbiznis/fleetbill/internal/gateway/domain"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	ratingdomain "github.com/smallbiznis/fleetbill/internal/rating/domain"
	subdomain "github.com/smallbiznis/fleetbill/internal/subscription/domain"
	"github.com/smallbiznis/fleetbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// claimBatchSize bounds one renewal sweep.
const claimBatchSize = 500

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Repo        subdomain.Repository
	AccountRepo accountdomain.Repository
	PlanRepo    plandomain.Repository
	InvoiceRepo invoicedomain.Repository
	Gateway     gatewaydomain.Gateway
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	repo        subdomain.Repository
	accountRepo accountdomain.Repository
	planRepo    plandomain.Repository
	invoiceRepo invoicedomain.Repository
	gateway     gatewaydomain.Gateway
}

func New(p Params) subdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("subscription.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		planRepo:    p.PlanRepo,
		invoiceRepo: p.InvoiceRepo,
		gateway:     p.Gateway,
	}
}

func (s *Service) Start(ctx context.Context, req subdomain.StartSubscriptionRequest) (*subdomain.CompanySubscription, error) {
	plan, err := s.planRepo.FindByID(ctx, s.db, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, plandomain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	status := subdomain.StatusActive
	if req.Trial {
		status = subdomain.StatusTrial
	}
	sub := &subdomain.CompanySubscription{
		ID:                 s.genID.Generate(),
		CompanyID:          req.CompanyID,
		PlanID:             req.PlanID,
		Status:             status,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   plan.BillingCycle.Advance(now),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.GatewaySubscriptionRef != "" {
		ref := req.GatewaySubscriptionRef
		sub.GatewaySubscriptionRef = &ref
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, sub)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, subdomain.ErrSubscriptionExists
		}
		return nil, err
	}
	return sub, nil
}

func (s *Service) GetByCompany(ctx context.Context, companyID snowflake.ID) (*subdomain.CompanySubscription, error) {
	sub, err := s.repo.FindByCompany(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subdomain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// ProcessCharges renews due subscriptions. The claim transaction is
// short: lock, stamp the attempt, release. Gateway calls happen with
// no lock held and their own deadline; local state is reconciled
// afterwards in a fresh transaction.
func (s *Service) ProcessCharges(ctx context.Context) (subdomain.ChargeResult, error) {
	var result subdomain.ChargeResult
	if !s.cfg.Gateway.Configured() {
		return result, subdomain.ErrGatewayNotConfigured
	}

	now := s.clock.Now().UTC()
	var claimed []subdomain.CompanySubscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claimed, err = s.repo.ClaimDue(ctx, tx, now, claimBatchSize)
		if err != nil {
			return err
		}
		for i := range claimed {
			claimed[i].LastAttemptAt = &now
			claimed[i].UpdatedAt = now
			if err := s.repo.Update(ctx, tx, &claimed[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	result.Processed = len(claimed)
	for i := range claimed {
		sub := claimed[i]
		if err := s.chargeOne(ctx, &sub, now); err != nil {
			result.Failed++
			result.AppendError(fmt.Sprintf("company %s: %v", sub.CompanyID, err))
			s.log.Warn("subscription charge failed",
				zap.String("company_id", sub.CompanyID.String()),
				zap.Error(err),
			)
			if serr := s.suspend(ctx, &sub, now); serr != nil {
				s.log.Error("failed to suspend after charge failure",
					zap.String("company_id", sub.CompanyID.String()),
					zap.Error(serr),
				)
			}
			continue
		}
		result.Charged++
	}

	s.log.Info("subscription charge sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("charged", result.Charged),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) chargeOne(ctx context.Context, sub *subdomain.CompanySubscription, now time.Time) error {
	plan, err := s.planRepo.FindByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return ratingdomain.ErrPlanMissing
	}

	account, err := s.accountRepo.FindByCompany(ctx, s.db, sub.CompanyID)
	if err != nil {
		return err
	}
	if account == nil || account.GatewayCustomerRef == nil {
		return accountdomain.ErrInvalidCustomerRef
	}

	amount, description, err := s.chargeAmount(ctx, sub, plan)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Gateway.CallTimeout)
	defer cancel()

	invoiceRef, err := s.gateway.CreateInvoice(callCtx, *account.GatewayCustomerRef, toCents(amount), plan.Currency, description)
	if err != nil {
		return err
	}
	if _, err := s.gateway.FinalizeAndPayInvoice(callCtx, invoiceRef); err != nil {
		return err
	}

	newStart := sub.CurrentPeriodEnd
	newEnd := plan.BillingCycle.Advance(newStart)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.CurrentPeriodStart = newStart
		sub.CurrentPeriodEnd = newEnd
		sub.LastChargedAt = &now
		sub.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}

		locked, err := s.accountRepo.LockByCompany(ctx, tx, sub.CompanyID)
		if err != nil {
			return err
		}
		if locked == nil {
			return nil
		}
		locked.NextBillingDate = &newEnd
		locked.UpdatedAt = now
		return s.accountRepo.Update(ctx, tx, locked)
	})
}

// chargeAmount prices the expiring period: the local invoice for that
// period when one exists, otherwise the plan's recurring fee.
func (s *Service) chargeAmount(ctx context.Context, sub *subdomain.CompanySubscription, plan *plandomain.PricingPlan) (decimal.Decimal, string, error) {
	periodStart := ratingdomain.MonthStart(sub.CurrentPeriodStart)
	inv, err := s.invoiceRepo.FindActiveByPeriod(ctx, s.db, sub.CompanyID, periodStart)
	if err != nil {
		return decimal.Zero, "", err
	}
	if inv != nil {
		description := fmt.Sprintf("Invoice %s (%s)", inv.ID, periodStart.Format("2006-01"))
		return inv.Total, description, nil
	}

	months := decimal.NewFromInt(int64(plan.BillingCycle.Months()))
	description := fmt.Sprintf("%s plan renewal (%s)", plan.Name, periodStart.Format("2006-01"))
	return plan.BaseMonthlyPrice.Mul(months), description, nil
}

func (s *Service) suspend(ctx context.Context, sub *subdomain.CompanySubscription, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.Status = subdomain.StatusSuspended
		sub.UpdatedAt = now
		return s.repo.Update(ctx, tx, sub)
	})
}

// CheckPastDue follows the gateway's view: an active local record whose
// remote side is no longer active gets suspended. Retrieval failures
// are transient and leave the record untouched.
func (s *Service) CheckPastDue(ctx context.Context) (subdomain.ReconcileResult, error) {
	var result subdomain.ReconcileResult
	if !s.cfg.Gateway.Configured() {
		return result, subdomain.ErrGatewayNotConfigured
	}

	subs, err := s.repo.ListActiveWithRef(ctx, s.db)
	if err != nil {
		return result, err
	}
	result.Checked = len(subs)

	now := s.clock.Now().UTC()
	for i := range subs {
		sub := subs[i]

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Gateway.CallTimeout)
		remote, err := s.gateway.RetrieveSubscription(callCtx, *sub.GatewaySubscriptionRef)
		cancel()
		if err != nil {
			result.AppendError(fmt.Sprintf("company %s: %v", sub.CompanyID, err))
			continue
		}
		if remote.Status.Active() {
			continue
		}

		if err := s.suspend(ctx, &sub, now); err != nil {
			result.AppendError(fmt.Sprintf("company %s: %v", sub.CompanyID, err))
			continue
		}
		result.Suspended++
		s.log.Info("subscription suspended",
			zap.String("company_id", sub.CompanyID.String()),
			zap.String("remote_status", string(remote.Status)),
		)
	}
	return result, nil
}

// CancelPastDue cancels suspended subscriptions whose period ended
// longer ago than the grace threshold. The remote cancel happens
// first; local state only flips after the gateway confirms.
func (s *Service) CancelPastDue(ctx context.Context) (subdomain.CancelResult, error) {
	var result subdomain.CancelResult
	if !s.cfg.Gateway.Configured() {
		return result, subdomain.ErrGatewayNotConfigured
	}

	now := s.clock.Now().UTC()
	cutoff := now.AddDate(0, 0, -s.cfg.Billing.SuspendGraceDays)
	subs, err := s.repo.ListSuspendedBefore(ctx, s.db, cutoff)
	if err != nil {
		return result, err
	}
	result.Candidates = len(subs)

	for i := range subs {
		sub := subs[i]
		if sub.GatewaySubscriptionRef != nil {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.Gateway.CallTimeout)
			err := s.gateway.CancelSubscription(callCtx, *sub.GatewaySubscriptionRef)
			cancel()
			if err != nil {
				result.Failed++
				result.AppendError(fmt.Sprintf("company %s: %v", sub.CompanyID, err))
				continue
			}
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sub.Status = subdomain.StatusCancelled
			sub.CancelledAt = &now
			sub.UpdatedAt = now
			return s.repo.Update(ctx, tx, &sub)
		})
		if err != nil {
			result.Failed++
			result.AppendError(fmt.Sprintf("company %s: %v", sub.CompanyID, err))
			continue
		}
		result.Cancelled++
		s.log.Info("subscription cancelled after grace period",
			zap.String("company_id", sub.CompanyID.String()),
			zap.Time("period_end", sub.CurrentPeriodEnd),
		)
	}
	return result, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
