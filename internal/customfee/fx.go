package customfee

import (
	"github.com/subgridhq/subgrid/internal/customfee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customfee.service",
	fx.Provide(service.NewService),
)
