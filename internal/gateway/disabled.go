package gateway

import (
	"context"

	"github.com/smallbiznis/fleetbill/internal/gateway/domain"
)

// disabledGateway stands in when no gateway credentials are
// configured. Every call fails with ErrNotConfigured so charge
// processing can skip accounts cleanly instead of panicking.
type disabledGateway struct{}

func (disabledGateway) RetrieveSubscription(context.Context, string) (*domain.RemoteSubscription, error) {
	return nil, domain.ErrNotConfigured
}

func (disabledGateway) CreateInvoice(context.Context, string, int64, string, string) (string, error) {
	return "", domain.ErrNotConfigured
}

func (disabledGateway) FinalizeAndPayInvoice(context.Context, string) (*domain.ChargeReceipt, error) {
	return nil, domain.ErrNotConfigured
}

func (disabledGateway) CancelSubscription(context.Context, string) error {
	return domain.ErrNotConfigured
}
