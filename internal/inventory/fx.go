package inventory

import (
	"github.com/smallbiznis/fleetbill/internal/inventory/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.adapter",
	fx.Provide(repository.New),
)
