package subscription

import (
	"github.com/smallbiznis/fleetbill/internal/subscription/repository"
	"github.com/smallbiznis/fleetbill/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
