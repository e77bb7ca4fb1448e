package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  plandomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  plandomain.Repository
}

func New(p Params) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req plandomain.CreatePlanRequest) (*plandomain.PricingPlan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, plandomain.ErrInvalidName
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, plandomain.ErrInvalidCurrency
	}
	if !req.BillingCycle.Valid() {
		return nil, plandomain.ErrInvalidBillingCycle
	}
	if req.IncludedCPUCores < 0 || req.IncludedMemoryGB < 0 || req.IncludedStorageGB < 0 {
		return nil, plandomain.ErrNegativeAllowance
	}
	if req.BaseMonthlyPrice.Sign() < 0 ||
		req.OverageCPUCorePrice.Sign() < 0 ||
		req.OverageMemoryGBPrice.Sign() < 0 ||
		req.OverageStorageGBPrice.Sign() < 0 {
		return nil, plandomain.ErrNegativePrice
	}

	now := time.Now().UTC()
	plan := &plandomain.PricingPlan{
		ID:                    s.genID.Generate(),
		Name:                  name,
		BaseMonthlyPrice:      req.BaseMonthlyPrice,
		Currency:              currency,
		IncludedCPUCores:      req.IncludedCPUCores,
		IncludedMemoryGB:      req.IncludedMemoryGB,
		IncludedStorageGB:     req.IncludedStorageGB,
		OverageCPUCorePrice:   req.OverageCPUCorePrice,
		OverageMemoryGBPrice:  req.OverageMemoryGBPrice,
		OverageStorageGBPrice: req.OverageStorageGBPrice,
		BillingCycle:          req.BillingCycle,
		IsActive:              true,
		IsDefault:             req.IsDefault,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if plan.IsDefault {
			// Only one default at a time.
			if err := tx.Model(&plandomain.PricingPlan{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, plan)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pricing plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("name", plan.Name),
	)
	return plan, nil
}

func (s *Service) Update(ctx context.Context, req plandomain.UpdatePlanRequest) (*plandomain.PricingPlan, error) {
	planID, err := parseID(req.ID)
	if err != nil {
		return nil, plandomain.ErrInvalidID
	}

	var plan *plandomain.PricingPlan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err = s.repo.FindByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if plan == nil {
			return plandomain.ErrNotFound
		}

		referenced, err := s.referencedByInvoice(ctx, tx, planID)
		if err != nil {
			return err
		}
		if referenced && req.Name != nil {
			// Monetary fields are never updatable; once invoiced, even the
			// name is frozen so statements match history.
			return plandomain.ErrPlanInUse
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return plandomain.ErrInvalidName
			}
			plan.Name = name
		}
		if req.IsActive != nil {
			plan.IsActive = *req.IsActive
		}
		plan.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*plandomain.PricingPlan, error) {
	planID, err := parseID(id)
	if err != nil {
		return nil, plandomain.ErrInvalidID
	}
	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrNotFound
	}
	return plan, nil
}

func (s *Service) GetDefault(ctx context.Context) (*plandomain.PricingPlan, error) {
	plan, err := s.repo.FindDefault(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrNoDefaultPlan
	}
	return plan, nil
}

func (s *Service) ListActive(ctx context.Context) ([]plandomain.PricingPlan, error) {
	return s.repo.ListActive(ctx, s.db)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	active := false
	_, err := s.Update(ctx, plandomain.UpdatePlanRequest{ID: id, IsActive: &active})
	return err
}

func (s *Service) referencedByInvoice(ctx context.Context, tx *gorm.DB, planID snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE plan_id = ?`, planID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
