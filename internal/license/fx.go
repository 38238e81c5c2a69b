package license

import (
	"github.com/subgridhq/subgrid/internal/license/service"
	"go.uber.org/fx"
)

var Module = fx.Module("license.service",
	fx.Provide(service.NewService),
)
