package snapshot

import (
	"github.com/smallbiznis/fleetbill/internal/snapshot/repository"
	"github.com/smallbiznis/fleetbill/internal/snapshot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("snapshot.collector",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
