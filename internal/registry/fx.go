package registry

import (
	"github.com/subgridhq/subgrid/internal/registry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registry.service",
	fx.Provide(
		service.NewService,
		service.AsFeeOracle,
	),
)
