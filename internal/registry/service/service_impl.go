package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/authz"
	"github.com/subgridhq/subgrid/internal/clock"
	"github.com/subgridhq/subgrid/internal/config"
	customfeedomain "github.com/subgridhq/subgrid/internal/customfee/domain"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	"github.com/subgridhq/subgrid/internal/events"
	eventdomain "github.com/subgridhq/subgrid/internal/events/domain"
	licensedomain "github.com/subgridhq/subgrid/internal/license/domain"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	obsmetrics "github.com/subgridhq/subgrid/internal/observability/metrics"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config

	AuthzSvc     authz.Service
	TierSvc      tierdomain.Service
	CustomFeeSvc customfeedomain.Service
	LicenseSvc   licensedomain.Service
	DirectorySvc directorydomain.Service
	TreasurySvc  treasurydomain.Service
	MerchantRepo merchantdomain.Repository
	Outbox       *events.Outbox
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	config config.Config

	authzSvc     authz.Service
	tierSvc      tierdomain.Service
	customFeeSvc customfeedomain.Service
	licenseSvc   licensedomain.Service
	directorySvc directorydomain.Service
	treasurySvc  treasurydomain.Service
	merchantRepo merchantdomain.Repository
	outbox       *events.Outbox
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) registrydomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("registry.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		config:       p.Config,
		authzSvc:     p.AuthzSvc,
		tierSvc:      p.TierSvc,
		customFeeSvc: p.CustomFeeSvc,
		licenseSvc:   p.LicenseSvc,
		directorySvc: p.DirectorySvc,
		treasurySvc:  p.TreasurySvc,
		merchantRepo: p.MerchantRepo,
		outbox:       p.Outbox,
		obsMetrics:   p.ObsMetrics,
	}
}

// AsFeeOracle exposes the registry's read surface as the oracle the merchant
// side queries mid-subscribe.
func AsFeeOracle(svc registrydomain.Service) merchantdomain.FeeOracle {
	return svc
}

// CreateService implements domain.Service.
func (s *Service) CreateService(ctx context.Context, req registrydomain.CreateServiceRequest) (merchantdomain.ServiceInstance, error) {
	if req.OwnerID == 0 || strings.TrimSpace(req.Asset) == "" {
		return merchantdomain.ServiceInstance{}, registrydomain.ErrInvalidAddress
	}
	if req.IntervalSeconds <= 0 {
		return merchantdomain.ServiceInstance{}, registrydomain.ErrInvalidInterval
	}
	if req.Price < 0 {
		return merchantdomain.ServiceInstance{}, registrydomain.ErrInvalidAddress
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return merchantdomain.ServiceInstance{}, err
	}
	if settings.Paused {
		return merchantdomain.ServiceInstance{}, registrydomain.ErrSystemPaused
	}

	now := s.clock.Now()
	instance := merchantdomain.ServiceInstance{
		ID:              s.genID.Generate(),
		OwnerID:         req.OwnerID,
		Asset:           strings.TrimSpace(req.Asset),
		Price:           req.Price,
		IntervalSeconds: req.IntervalSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.merchantRepo.InsertInstance(ctx, tx, &instance); err != nil {
			return err
		}

		err := s.directorySvc.Register(ctx, tx, directorydomain.ServiceRecord{
			ServiceID: instance.ID,
			OwnerID:   instance.OwnerID,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeServiceCreated, instance.ID, map[string]any{
			"service_id":       instance.ID.String(),
			"owner_id":         instance.OwnerID.String(),
			"asset":            instance.Asset,
			"price":            instance.Price,
			"interval_seconds": instance.IntervalSeconds,
		})
	})
	if err != nil {
		return merchantdomain.ServiceInstance{}, err
	}

	s.log.Info("service created",
		zap.String("service_id", instance.ID.String()),
		zap.String("owner_id", instance.OwnerID.String()),
	)

	return instance, nil
}

// PurchaseTier implements domain.Service.
func (s *Service) PurchaseTier(ctx context.Context, req registrydomain.PurchaseTierRequest) (licensedomain.License, error) {
	if req.Caller == 0 {
		return licensedomain.License{}, registrydomain.ErrInvalidAddress
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return licensedomain.License{}, err
	}
	if settings.Paused {
		return licensedomain.License{}, registrydomain.ErrSystemPaused
	}

	exists, err := s.directorySvc.Exists(ctx, nil, req.ServiceID)
	if err != nil {
		return licensedomain.License{}, err
	}
	if !exists {
		return licensedomain.License{}, directorydomain.ErrUnknownService
	}

	tier, err := s.tierSvc.Get(ctx, req.TierID)
	if err != nil {
		return licensedomain.License{}, err
	}
	if !tier.Purchasable() {
		return licensedomain.License{}, registrydomain.ErrTierNotPurchasable
	}

	instance, err := s.merchantRepo.FindInstance(ctx, s.db, req.ServiceID)
	if err != nil {
		return licensedomain.License{}, err
	}
	if instance == nil {
		return licensedomain.License{}, directorydomain.ErrUnknownService
	}

	var license licensedomain.License
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Payment first: if the transfer leg fails the transaction aborts
		// and no license state changes.
		err := s.treasurySvc.Transfer(ctx, tx, treasurydomain.TransferRequest{
			Asset:      instance.Asset,
			FromID:     req.Caller,
			ToID:       settings.DestinationID,
			Amount:     tier.Price,
			SourceType: treasurydomain.SourceTypeTierPurchase,
			SourceID:   req.ServiceID,
		})
		if err != nil {
			return err
		}

		license, err = s.licenseSvc.ApplyPurchase(ctx, tx, req.ServiceID, tier, s.clock.Now())
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeTierPurchased, req.ServiceID, map[string]any{
			"service_id": req.ServiceID.String(),
			"caller_id":  req.Caller.String(),
			"tier":       tier.ID.String(),
			"price":      tier.Price,
			"expires_at": license.ExpiresAt,
		})
	})
	if err != nil {
		return licensedomain.License{}, err
	}

	s.obsMetrics.RecordTierPurchase(ctx, tier.ID.String())
	return license, nil
}

// ResolveFee implements domain.Service.
func (s *Service) ResolveFee(ctx context.Context, serviceID snowflake.ID) (int32, error) {
	exists, err := s.directorySvc.Exists(ctx, nil, serviceID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, directorydomain.ErrUnknownService
	}

	override, err := s.customFeeSvc.FindActive(ctx, nil, serviceID)
	if err != nil {
		return 0, err
	}
	if override != nil {
		return override.FeeRateBps, nil
	}

	license, err := s.licenseSvc.Find(ctx, nil, serviceID)
	if err != nil {
		return 0, err
	}
	if license != nil && license.ActiveAt(s.clock.Now()) {
		// Live catalog lookup: editing a tier retroactively changes the
		// effective rate of every license on it.
		tier, err := s.tierSvc.Get(ctx, license.TierID)
		if err == nil {
			return tier.FeeRateBps, nil
		}
		if !errors.Is(err, tierdomain.ErrUnknownTier) {
			return 0, err
		}
	}

	free, err := s.tierSvc.Get(ctx, tierdomain.TierFree)
	if err != nil {
		return 0, err
	}
	return free.FeeRateBps, nil
}

// PlatformDestination implements domain.Service.
func (s *Service) PlatformDestination(ctx context.Context) (snowflake.ID, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.DestinationID, nil
}

// SetCustomFee implements domain.Service.
func (s *Service) SetCustomFee(ctx context.Context, req registrydomain.SetCustomFeeRequest) (customfeedomain.CustomFee, error) {
	if err := s.authzSvc.RequireAdministrator(ctx, req.Actor); err != nil {
		return customfeedomain.CustomFee{}, err
	}

	exists, err := s.directorySvc.Exists(ctx, nil, req.ServiceID)
	if err != nil {
		return customfeedomain.CustomFee{}, err
	}
	if !exists {
		return customfeedomain.CustomFee{}, directorydomain.ErrUnknownService
	}

	var fee customfeedomain.CustomFee
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fee, err = s.customFeeSvc.Set(ctx, tx, customfeedomain.SetCustomFeeRequest{
			ServiceID:  req.ServiceID,
			FeeRateBps: req.FeeRateBps,
			Active:     req.Active,
		})
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeCustomFeeSet, req.ServiceID, map[string]any{
			"service_id":   req.ServiceID.String(),
			"fee_rate_bps": req.FeeRateBps,
			"active":       req.Active,
		})
	})
	if err != nil {
		return customfeedomain.CustomFee{}, err
	}

	return fee, nil
}

// ClearCustomFee implements domain.Service.
func (s *Service) ClearCustomFee(ctx context.Context, actor, serviceID snowflake.ID) error {
	if err := s.authzSvc.RequireAdministrator(ctx, actor); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.customFeeSvc.Clear(ctx, tx, serviceID); err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeCustomFeeCleared, serviceID, map[string]any{
			"service_id": serviceID.String(),
		})
	})
}

// UpdateTier implements domain.Service.
func (s *Service) UpdateTier(ctx context.Context, actor snowflake.ID, req tierdomain.OverwriteTierRequest) (tierdomain.Tier, error) {
	if err := s.authzSvc.RequireAdministrator(ctx, actor); err != nil {
		return tierdomain.Tier{}, err
	}

	var tier tierdomain.Tier
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tier, err = s.tierSvc.Overwrite(ctx, tx, req)
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeTierUpdated, snowflake.ID(req.ID), map[string]any{
			"tier":             tier.ID.String(),
			"price":            tier.Price,
			"fee_rate_bps":     tier.FeeRateBps,
			"duration_seconds": tier.DurationSeconds,
			"active":           tier.Active,
		})
	})
	if err != nil {
		return tierdomain.Tier{}, err
	}

	return tier, nil
}

// SetPlatformDestination implements domain.Service.
func (s *Service) SetPlatformDestination(ctx context.Context, actor, destination snowflake.ID) error {
	if err := s.authzSvc.RequireAdministrator(ctx, actor); err != nil {
		return err
	}
	if destination == 0 {
		return registrydomain.ErrInvalidAddress
	}
	if _, err := s.Settings(ctx); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Model(&registrydomain.PlatformSettings{}).
			Where("id = ?", registrydomain.SettingsRowID).
			Updates(map[string]any{
				"destination_id": destination,
				"updated_at":     s.clock.Now(),
			}).Error
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeDestinationChanged, destination, map[string]any{
			"destination_id": destination.String(),
		})
	})
}

// Pause implements domain.Service.
func (s *Service) Pause(ctx context.Context, actor snowflake.ID) error {
	return s.setPaused(ctx, actor, true)
}

// Unpause implements domain.Service.
func (s *Service) Unpause(ctx context.Context, actor snowflake.ID) error {
	return s.setPaused(ctx, actor, false)
}

func (s *Service) setPaused(ctx context.Context, actor snowflake.ID, paused bool) error {
	if err := s.authzSvc.RequireAdministrator(ctx, actor); err != nil {
		return err
	}
	if _, err := s.Settings(ctx); err != nil {
		return err
	}

	eventType := eventdomain.TypeRegistryPaused
	if !paused {
		eventType = eventdomain.TypeRegistryUnpaused
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Model(&registrydomain.PlatformSettings{}).
			Where("id = ?", registrydomain.SettingsRowID).
			Updates(map[string]any{
				"paused":     paused,
				"updated_at": s.clock.Now(),
			}).Error
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventType, snowflake.ID(registrydomain.SettingsRowID), map[string]any{
			"paused": paused,
		})
	})
}

// Settings implements domain.Service. The singleton row is created lazily so
// a fresh database resolves fees without waiting for administration.
func (s *Service) Settings(ctx context.Context) (registrydomain.PlatformSettings, error) {
	var settings registrydomain.PlatformSettings
	err := s.db.WithContext(ctx).
		Where("id = ?", registrydomain.SettingsRowID).
		First(&settings).Error
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return registrydomain.PlatformSettings{}, err
	}

	settings = registrydomain.PlatformSettings{
		ID:            registrydomain.SettingsRowID,
		DestinationID: snowflake.ID(s.config.PlatformHolderID),
		UpdatedAt:     s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
		if dberr := s.db.WithContext(ctx).Where("id = ?", registrydomain.SettingsRowID).First(&settings).Error; dberr == nil {
			return settings, nil
		}
		return registrydomain.PlatformSettings{}, err
	}
	return settings, nil
}
