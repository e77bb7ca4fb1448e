package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	"github.com/smallbiznis/fleetbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     accountdomain.Repository
	PlanRepo plandomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     accountdomain.Repository
	planRepo plandomain.Repository
}

func New(p Params) accountdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("billingaccount.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		planRepo: p.PlanRepo,
	}
}

func (s *Service) Create(ctx context.Context, req accountdomain.CreateAccountRequest) (*accountdomain.BillingAccount, error) {
	companyID, err := parseID(req.CompanyID)
	if err != nil {
		return nil, accountdomain.ErrInvalidCompany
	}

	email := strings.TrimSpace(req.BillingEmail)
	if email == "" || !strings.Contains(email, "@") {
		return nil, accountdomain.ErrInvalidEmail
	}

	var planID *snowflake.ID
	if strings.TrimSpace(req.PlanID) != "" {
		id, err := parseID(req.PlanID)
		if err != nil {
			return nil, plandomain.ErrInvalidID
		}
		planID = &id
	}

	now := time.Now().UTC()
	account := &accountdomain.BillingAccount{
		ID:           s.genID.Generate(),
		CompanyID:    companyID,
		PlanID:       planID,
		BillingEmail: email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if planID != nil {
			plan, err := s.planRepo.FindByID(ctx, tx, *planID)
			if err != nil {
				return err
			}
			if plan == nil {
				return plandomain.ErrNotFound
			}
		}
		return s.repo.Insert(ctx, tx, account)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrAccountExists
		}
		return nil, err
	}

	return account, nil
}

func (s *Service) GetByCompany(ctx context.Context, companyID string) (*accountdomain.BillingAccount, error) {
	id, err := parseID(companyID)
	if err != nil {
		return nil, accountdomain.ErrInvalidCompany
	}
	account, err := s.repo.FindByCompany(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) AssignPlan(ctx context.Context, companyID, planID string) (*accountdomain.BillingAccount, error) {
	id, err := parseID(companyID)
	if err != nil {
		return nil, accountdomain.ErrInvalidCompany
	}

	var account *accountdomain.BillingAccount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err = s.repo.LockByCompany(ctx, tx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrAccountNotFound
		}

		if strings.TrimSpace(planID) == "" {
			account.PlanID = nil
		} else {
			pid, err := parseID(planID)
			if err != nil {
				return plandomain.ErrInvalidID
			}
			plan, err := s.planRepo.FindByID(ctx, tx, pid)
			if err != nil {
				return err
			}
			if plan == nil || !plan.IsActive {
				return plandomain.ErrNotFound
			}
			account.PlanID = &pid
		}

		account.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan assignment updated",
		zap.String("company_id", companyID),
		zap.String("plan_id", planID),
	)
	return account, nil
}

func (s *Service) SetGatewayCustomer(ctx context.Context, companyID, customerRef string) error {
	id, err := parseID(companyID)
	if err != nil {
		return accountdomain.ErrInvalidCompany
	}
	ref := strings.TrimSpace(customerRef)
	if ref == "" {
		return accountdomain.ErrInvalidCustomerRef
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.LockByCompany(ctx, tx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrAccountNotFound
		}
		account.GatewayCustomerRef = &ref
		account.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, account)
	})
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
