package merchant

import (
	"github.com/subgridhq/subgrid/internal/merchant/repository"
	"github.com/subgridhq/subgrid/internal/merchant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
