package treasury

import (
	"github.com/subgridhq/subgrid/internal/treasury/service"
	"go.uber.org/fx"
)

var Module = fx.Module("treasury.service",
	fx.Provide(service.NewService),
)
