package authz

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("authz.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
	fx.Invoke(bootstrapAdministrator),
)

// bootstrapAdministrator grants the configured actor the administrator role
// so a fresh deployment can reach the administrative surface.
func bootstrapAdministrator(svc Service, cfg config.Config) error {
	if cfg.AdminActorID == 0 {
		return nil
	}
	return svc.GrantAdministrator(context.Background(), snowflake.ID(cfg.AdminActorID))
}
