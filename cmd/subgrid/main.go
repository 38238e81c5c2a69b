package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/clock"
	"github.com/subgridhq/subgrid/internal/config"
	"github.com/subgridhq/subgrid/internal/migration"
	"github.com/subgridhq/subgrid/internal/observability"
	"github.com/subgridhq/subgrid/internal/server"
	"github.com/subgridhq/subgrid/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		panic(err)
	}
	return node
}
