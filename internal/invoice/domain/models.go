// Package domain contains persistence models for invoices and their
// line items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents lifecycle states for an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusSent   InvoiceStatus = "sent"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

// CanTransition reports whether moving to target is a legal step.
// Paid and void are terminal; void is reachable from any earlier state.
func (s InvoiceStatus) CanTransition(target InvoiceStatus) bool {
	if s == InvoiceStatusPaid || s == InvoiceStatusVoid {
		return false
	}
	if target == InvoiceStatusVoid {
		return true
	}
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusIssued
	case InvoiceStatusIssued:
		return target == InvoiceStatusSent || target == InvoiceStatusPaid
	case InvoiceStatusSent:
		return target == InvoiceStatusPaid
	}
	return false
}

// LineItemKind tags what a line item charges for.
type LineItemKind string

const (
	LineItemBaseFee        LineItemKind = "base_fee"
	LineItemCPUOverage     LineItemKind = "cpu_overage"
	LineItemMemoryOverage  LineItemKind = "memory_overage"
	LineItemStorageOverage LineItemKind = "storage_overage"
)

// Invoice is one company's bill for one period. At most one non-void
// invoice exists per (company_id, period_start); the storage layer
// enforces it with a partial unique index and the generator re-checks
// under a row lock.
type Invoice struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	CompanyID   snowflake.ID    `gorm:"not null;index:idx_invoices_company_period,priority:1"`
	PlanID      snowflake.ID    `gorm:"not null;index"`
	PeriodStart time.Time       `gorm:"not null;index:idx_invoices_company_period,priority:2"`
	PeriodEnd   time.Time       `gorm:"not null"`
	Status      InvoiceStatus   `gorm:"type:text;not null"`
	Currency    string          `gorm:"type:text;not null"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Total       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	InitiatedBy string          `gorm:"type:text;not null"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLineItem belongs to exactly one invoice and is immutable once
// the invoice leaves draft.
type InvoiceLineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	InvoiceID   snowflake.ID    `gorm:"not null;index"`
	Kind        LineItemKind    `gorm:"type:text;not null"`
	Description string          `gorm:"type:text;not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }
