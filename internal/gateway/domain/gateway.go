// Package domain defines the payment gateway port. The engine only
// ever talks to the gateway through this interface; the HTTP adapter
// and the disabled stand-in both satisfy it.
package domain

import (
	"context"
	"errors"
)

// SubscriptionStatus is the remote gateway's view of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionUnknown  SubscriptionStatus = "unknown"
)

// Active reports whether the remote side still considers the
// subscription chargeable.
func (s SubscriptionStatus) Active() bool { return s == SubscriptionActive }

// RemoteSubscription is the gateway's record for one customer.
type RemoteSubscription struct {
	Ref    string             `json:"ref"`
	Status SubscriptionStatus `json:"status"`
}

// ChargeReceipt is the gateway's acknowledgement of a finalized
// invoice charge.
type ChargeReceipt struct {
	InvoiceRef string `json:"invoice_ref"`
	Paid       bool   `json:"paid"`
}

// Gateway is the outbound payment port. Every call carries an
// idempotency key derived by the adapter, so retries after timeouts
// cannot double-charge.
type Gateway interface {
	RetrieveSubscription(ctx context.Context, customerRef string) (*RemoteSubscription, error)
	CreateInvoice(ctx context.Context, customerRef string, amountCents int64, currency, description string) (string, error)
	FinalizeAndPayInvoice(ctx context.Context, invoiceRef string) (*ChargeReceipt, error)
	CancelSubscription(ctx context.Context, subscriptionRef string) error
}

var (
	ErrNotConfigured = errors.New("gateway_not_configured")
	ErrUnavailable   = errors.New("gateway_unavailable")
)
