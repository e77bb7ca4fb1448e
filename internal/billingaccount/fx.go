package billingaccount

import (
	"github.com/smallbiznis/fleetbill/internal/billingaccount/repository"
	"github.com/smallbiznis/fleetbill/internal/billingaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingaccount.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
