package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/config"
	customfeedomain "github.com/subgridhq/subgrid/internal/customfee/domain"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	eventdomain "github.com/subgridhq/subgrid/internal/events/domain"
	licensedomain "github.com/subgridhq/subgrid/internal/license/domain"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	"github.com/subgridhq/subgrid/internal/seed"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql deployments lean on gorm's schema sync.
			err := conn.AutoMigrate(
				&tierdomain.Tier{},
				&customfeedomain.CustomFee{},
				&licensedomain.License{},
				&directorydomain.ServiceRecord{},
				&merchantdomain.ServiceInstance{},
				&merchantdomain.Entitlement{},
				&treasurydomain.Account{},
				&treasurydomain.Transfer{},
				&registrydomain.PlatformSettings{},
				&eventdomain.Event{},
			)
			if err != nil {
				return err
			}
		}

		if err := seed.EnsureTierCatalog(conn); err != nil {
			return err
		}
		return seed.EnsurePlatformSettings(conn, snowflake.ID(cfg.PlatformHolderID))
	}),
)
