package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fleetbill/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In
}

type repo struct{}

func New(p Params) domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, sub *domain.CompanySubscription) error {
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *repo) Update(ctx context.Context, tx *gorm.DB, sub *domain.CompanySubscription) error {
	return tx.WithContext(ctx).Save(sub).Error
}

func (r *repo) FindByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*domain.CompanySubscription, error) {
	var sub domain.CompanySubscription
	err := tx.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repo) ClaimDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]domain.CompanySubscription, error) {
	var subs []domain.CompanySubscription
	q := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND current_period_end <= ? AND gateway_subscription_ref IS NOT NULL", domain.StatusActive, now).
		Order("current_period_end ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&subs).Error
	return subs, err
}

func (r *repo) ListActiveWithRef(ctx context.Context, tx *gorm.DB) ([]domain.CompanySubscription, error) {
	var subs []domain.CompanySubscription
	err := tx.WithContext(ctx).
		Where("status = ? AND gateway_subscription_ref IS NOT NULL", domain.StatusActive).
		Order("company_id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *repo) ListSuspendedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]domain.CompanySubscription, error) {
	var subs []domain.CompanySubscription
	err := tx.WithContext(ctx).
		Where("status = ? AND current_period_end < ?", domain.StatusSuspended, cutoff).
		Order("current_period_end ASC").
		Find(&subs).Error
	return subs, err
}
