package invoice

import (
	"github.com/smallbiznis/fleetbill/internal/invoice/repository"
	"github.com/smallbiznis/fleetbill/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		repository.New,
		service.New,
	),
)
