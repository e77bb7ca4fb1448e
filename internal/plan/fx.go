package plan

import (
	"github.com/smallbiznis/fleetbill/internal/plan/repository"
	"github.com/smallbiznis/fleetbill/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
