package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/subgridhq/subgrid/internal/authz"
	"github.com/subgridhq/subgrid/internal/config"
	"github.com/subgridhq/subgrid/internal/customfee"
	"github.com/subgridhq/subgrid/internal/directory"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	"github.com/subgridhq/subgrid/internal/events"
	"github.com/subgridhq/subgrid/internal/license"
	"github.com/subgridhq/subgrid/internal/merchant"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	obsmiddleware "github.com/subgridhq/subgrid/internal/observability/logger"
	"github.com/subgridhq/subgrid/internal/registry"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	"github.com/subgridhq/subgrid/internal/tier"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"github.com/subgridhq/subgrid/internal/treasury"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	authz.Module,
	events.Module,
	tier.Module,
	customfee.Module,
	license.Module,
	directory.Module,
	treasury.Module,
	merchant.Module,
	registry.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	registrySvc  registrydomain.Service
	merchantSvc  merchantdomain.Service
	tierSvc      tierdomain.Service
	directorySvc directorydomain.Service
	treasurySvc  treasurydomain.Service
	outbox       *events.Outbox
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	RegistrySvc  registrydomain.Service
	MerchantSvc  merchantdomain.Service
	TierSvc      tierdomain.Service
	DirectorySvc directorydomain.Service
	TreasurySvc  treasurydomain.Service
	Outbox       *events.Outbox
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		registrySvc:  p.RegistrySvc,
		merchantSvc:  p.MerchantSvc,
		tierSvc:      p.TierSvc,
		directorySvc: p.DirectorySvc,
		treasurySvc:  p.TreasurySvc,
		outbox:       p.Outbox,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/tiers", s.ListTiers)
	v1.GET("/tiers/:id", s.GetTier)

	v1.POST("/services", s.CreateService)
	v1.GET("/services", s.ListServicesByOwner)
	v1.GET("/services/:id", s.GetService)
	v1.PATCH("/services/:id/config", s.UpdateServiceConfig)
	v1.POST("/services/:id/pause", s.PauseService)
	v1.POST("/services/:id/unpause", s.UnpauseService)
	v1.POST("/services/:id/withdraw", s.WithdrawFunds)
	v1.POST("/services/:id/recover", s.RecoverAsset)

	v1.POST("/services/:id/subscriptions", s.Subscribe)
	v1.GET("/services/:id/subscriptions/:subscriber_id", s.GetSubscription)

	v1.POST("/services/:id/tier", s.PurchaseTier)
	v1.GET("/services/:id/fee", s.ResolveFee)

	v1.GET("/platform/settings", s.GetPlatformSettings)
	v1.GET("/treasury/:holder_id/balances/:asset", s.GetBalance)
	v1.GET("/events", s.ListEvents)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin")

	admin.PUT("/tiers/:id", s.OverwriteTier)
	admin.PUT("/services/:id/custom-fee", s.SetCustomFee)
	admin.DELETE("/services/:id/custom-fee", s.ClearCustomFee)
	admin.PUT("/platform/destination", s.SetPlatformDestination)
	admin.POST("/platform/pause", s.PausePlatform)
	admin.POST("/platform/unpause", s.UnpausePlatform)
	admin.POST("/treasury/deposit", s.Deposit)
}
