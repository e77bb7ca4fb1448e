package gateway

import (
	"github.com/smallbiznis/fleetbill/internal/config"
	"github.com/smallbiznis/fleetbill/internal/gateway/domain"
	"github.com/smallbiznis/fleetbill/internal/gateway/httpclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway",
	fx.Provide(NewGateway),
)

// NewGateway wires the HTTP adapter when credentials are present and
// the disabled stand-in otherwise.
func NewGateway(cfg config.Config, log *zap.Logger) domain.Gateway {
	if !cfg.Gateway.Configured() {
		log.Warn("payment gateway not configured, charges disabled")
		return disabledGateway{}
	}
	return httpclient.New(cfg, log)
}
