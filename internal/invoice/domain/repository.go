package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertWithItems writes the invoice and its line items in the
	// caller's transaction. The partial unique index on
	// (company_id, period_start) rejects a second non-void invoice.
	InsertWithItems(ctx context.Context, tx *gorm.DB, inv *Invoice, items []InvoiceLineItem) error
	Update(ctx context.Context, tx *gorm.DB, inv *Invoice) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Invoice, error)
	// FindActiveByPeriod returns the non-void invoice for the company and
	// period start, or nil when none exists.
	FindActiveByPeriod(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, periodStart time.Time) (*Invoice, error)
	ListItems(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]InvoiceLineItem, error)
	ListByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, limit int) ([]Invoice, error)
}
