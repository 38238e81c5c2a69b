package directory

import (
	"github.com/subgridhq/subgrid/internal/directory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("directory.service",
	fx.Provide(service.NewService),
)
