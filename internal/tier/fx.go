package tier

import (
	"github.com/subgridhq/subgrid/internal/tier/repository"
	"github.com/subgridhq/subgrid/internal/tier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
