package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fleetbill/internal/invoice/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In
}

type repo struct{}

func New(p Params) domain.Repository {
	return &repo{}
}

func (r *repo) InsertWithItems(ctx context.Context, tx *gorm.DB, inv *domain.Invoice, items []domain.InvoiceLineItem) error {
	if err := tx.WithContext(ctx).Create(inv).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *repo) Update(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error {
	return tx.WithContext(ctx).Save(inv).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) FindActiveByPeriod(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, periodStart time.Time) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := tx.WithContext(ctx).
		Where("company_id = ? AND period_start = ? AND status != ?", companyID, periodStart, domain.InvoiceStatusVoid).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) ListItems(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceLineItem, error) {
	var items []domain.InvoiceLineItem
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, limit int) ([]domain.Invoice, error) {
	q := tx.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("period_start DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var invoices []domain.Invoice
	err := q.Find(&invoices).Error
	return invoices, err
}
