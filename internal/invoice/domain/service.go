package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// GenerateOutcome reports the result of a single-company generation.
// AlreadyExists distinguishes "returned the existing invoice" from a
// fresh creation so manual triggers can surface it explicitly.
type GenerateOutcome struct {
	Invoice       *Invoice
	AlreadyExists bool
}

// MaxErrorSamples bounds the message list carried by a batch result.
// The Failed count stays exact; the messages are a sample for logs.
const MaxErrorSamples = 50

// BatchResult summarizes one monthly generation sweep. One company's
// failure never blocks the rest; failures land in Errors.
type BatchResult struct {
	Companies      int      `json:"companies"`
	Created        int      `json:"created"`
	AlreadyExisted int      `json:"already_existed"`
	NotBillable    int      `json:"not_billable"`
	NotDue         int      `json:"not_due"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors,omitempty"`
}

// AppendError records a failure message, keeping at most
// MaxErrorSamples entries.
func (r *BatchResult) AppendError(msg string) {
	if len(r.Errors) < MaxErrorSamples {
		r.Errors = append(r.Errors, msg)
	}
}

type Service interface {
	// Generate returns (nil, nil) when the company is not billable.
	Generate(ctx context.Context, companyID snowflake.ID, month time.Time, initiatedBy string) (*GenerateOutcome, error)
	GenerateMonthlyInvoices(ctx context.Context, month time.Time) (BatchResult, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, []InvoiceLineItem, error)
	ListByCompany(ctx context.Context, companyID snowflake.ID, limit int) ([]Invoice, error)
	MarkIssued(ctx context.Context, id snowflake.ID) error
	MarkSent(ctx context.Context, id snowflake.ID) error
	MarkPaid(ctx context.Context, id snowflake.ID) error
	Void(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvalidTransition = errors.New("invalid_invoice_transition")
	ErrLineItemsMismatch = errors.New("line_items_do_not_sum_to_subtotal")
)
