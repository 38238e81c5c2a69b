package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/clock"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	"github.com/subgridhq/subgrid/internal/events"
	eventdomain "github.com/subgridhq/subgrid/internal/events/domain"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	obsmetrics "github.com/subgridhq/subgrid/internal/observability/metrics"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        merchantdomain.Repository
	Oracle      merchantdomain.FeeOracle
	TreasurySvc treasurydomain.Service
	Outbox      *events.Outbox
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        merchantdomain.Repository
	oracle      merchantdomain.FeeOracle
	treasurySvc treasurydomain.Service
	outbox      *events.Outbox
	obsMetrics  *obsmetrics.Metrics
	guard       *reentryGuard
}

func NewService(p Params) merchantdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("merchant.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		oracle:      p.Oracle,
		treasurySvc: p.TreasurySvc,
		outbox:      p.Outbox,
		obsMetrics:  p.ObsMetrics,
		guard:       newReentryGuard(),
	}
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, serviceID snowflake.ID) (merchantdomain.ServiceInstance, error) {
	instance, err := s.repo.FindInstance(ctx, s.db, serviceID)
	if err != nil {
		return merchantdomain.ServiceInstance{}, err
	}
	if instance == nil {
		return merchantdomain.ServiceInstance{}, directorydomain.ErrUnknownService
	}
	return *instance, nil
}

// Subscribe implements domain.Service.
func (s *Service) Subscribe(ctx context.Context, req merchantdomain.SubscribeRequest) (merchantdomain.SubscribeResponse, error) {
	if req.Caller == 0 {
		return merchantdomain.SubscribeResponse{}, merchantdomain.ErrInvalidAddress
	}

	instance, err := s.Get(ctx, req.ServiceID)
	if err != nil {
		return merchantdomain.SubscribeResponse{}, err
	}
	if instance.Paused {
		return merchantdomain.SubscribeResponse{}, merchantdomain.ErrSystemPaused
	}
	if instance.Price == 0 {
		return merchantdomain.SubscribeResponse{}, merchantdomain.ErrPriceNotSet
	}

	if err := s.guard.acquire(instance.ID); err != nil {
		return merchantdomain.SubscribeResponse{}, err
	}
	defer s.guard.release(instance.ID)

	// Cross-component oracle query happens mid-operation; the guard above is
	// already held so a callback into this instance cannot re-enter.
	rate, err := s.oracle.ResolveFee(ctx, instance.ID)
	if err != nil {
		return merchantdomain.SubscribeResponse{}, err
	}
	rate = clampFeeRate(rate)

	destination, err := s.oracle.PlatformDestination(ctx)
	if err != nil {
		return merchantdomain.SubscribeResponse{}, err
	}

	feeAmount := instance.Price * int64(rate) / tierdomain.BpsDenominator
	netAmount := instance.Price - feeAmount

	var resp merchantdomain.SubscribeResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if feeAmount > 0 {
			err := s.treasurySvc.Transfer(ctx, tx, treasurydomain.TransferRequest{
				Asset:      instance.Asset,
				FromID:     req.Caller,
				ToID:       destination,
				Amount:     feeAmount,
				SourceType: treasurydomain.SourceTypeSubscriptionFee,
				SourceID:   instance.ID,
			})
			if err != nil {
				return err
			}
		}
		if netAmount > 0 {
			err := s.treasurySvc.Transfer(ctx, tx, treasurydomain.TransferRequest{
				Asset:      instance.Asset,
				FromID:     req.Caller,
				ToID:       instance.ID,
				Amount:     netAmount,
				SourceType: treasurydomain.SourceTypeSubscriptionNet,
				SourceID:   instance.ID,
			})
			if err != nil {
				return err
			}
		}

		now := s.clock.Now()
		expiresAt, err := s.extendEntitlement(ctx, tx, instance, req.Caller, now)
		if err != nil {
			return err
		}

		resp = merchantdomain.SubscribeResponse{
			ServiceID:     instance.ID,
			SubscriberID:  req.Caller,
			AppliedFeeBps: rate,
			FeeAmount:     feeAmount,
			NetAmount:     netAmount,
			ExpiresAt:     expiresAt,
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeSubscriptionRecorded, instance.ID, map[string]any{
			"service_id":      instance.ID.String(),
			"subscriber_id":   req.Caller.String(),
			"applied_fee_bps": rate,
			"fee_amount":      feeAmount,
			"net_amount":      netAmount,
			"expires_at":      expiresAt,
		})
	})
	if err != nil {
		return merchantdomain.SubscribeResponse{}, err
	}

	s.obsMetrics.RecordSubscription(ctx, instance.Asset, rate)
	s.log.Info("subscription recorded",
		zap.String("service_id", instance.ID.String()),
		zap.String("subscriber_id", req.Caller.String()),
		zap.Int32("applied_fee_bps", rate),
		zap.Int64("fee_amount", feeAmount),
		zap.Int64("net_amount", netAmount),
	)

	return resp, nil
}

// extendEntitlement applies the stacking rule: an unexpired window gains a
// full interval on top of its current expiry, a lapsed or absent one restarts
// from now. Expiry never moves backwards.
func (s *Service) extendEntitlement(ctx context.Context, tx *gorm.DB, instance merchantdomain.ServiceInstance, subscriberID snowflake.ID, now time.Time) (time.Time, error) {
	current, err := s.repo.FindEntitlement(ctx, tx, instance.ID, subscriberID)
	if err != nil {
		return time.Time{}, err
	}

	var expiresAt time.Time
	if current != nil && current.ActiveAt(now) {
		expiresAt = current.ExpiresAt.Add(instance.Interval())
	} else {
		expiresAt = now.Add(instance.Interval())
	}

	entitlement := merchantdomain.Entitlement{
		ID:           s.genID.Generate(),
		ServiceID:    instance.ID,
		SubscriberID: subscriberID,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertEntitlement(ctx, tx, &entitlement); err != nil {
		return time.Time{}, err
	}

	return expiresAt, nil
}

// IsSubscribed implements domain.Service.
func (s *Service) IsSubscribed(ctx context.Context, serviceID, subscriberID snowflake.ID) (bool, error) {
	details, err := s.GetSubscriptionDetails(ctx, serviceID, subscriberID)
	if err != nil {
		return false, err
	}
	return details.Subscribed, nil
}

// RemainingTime implements domain.Service.
func (s *Service) RemainingTime(ctx context.Context, serviceID, subscriberID snowflake.ID) (time.Duration, error) {
	details, err := s.GetSubscriptionDetails(ctx, serviceID, subscriberID)
	if err != nil {
		return 0, err
	}
	return details.Remaining, nil
}

// GetSubscriptionDetails implements domain.Service.
func (s *Service) GetSubscriptionDetails(ctx context.Context, serviceID, subscriberID snowflake.ID) (merchantdomain.SubscriptionDetails, error) {
	instance, err := s.Get(ctx, serviceID)
	if err != nil {
		return merchantdomain.SubscriptionDetails{}, err
	}

	details := merchantdomain.SubscriptionDetails{
		ServiceID:    instance.ID,
		SubscriberID: subscriberID,
	}

	entitlement, err := s.repo.FindEntitlement(ctx, s.db, instance.ID, subscriberID)
	if err != nil {
		return merchantdomain.SubscriptionDetails{}, err
	}
	if entitlement == nil {
		return details, nil
	}

	now := s.clock.Now()
	expiresAt := entitlement.ExpiresAt
	details.ExpiresAt = &expiresAt
	if entitlement.ActiveAt(now) {
		details.Subscribed = true
		details.Remaining = expiresAt.Sub(now)
	}

	return details, nil
}

// WithdrawFunds implements domain.Service.
func (s *Service) WithdrawFunds(ctx context.Context, req merchantdomain.WithdrawRequest) (merchantdomain.WithdrawResponse, error) {
	instance, err := s.Get(ctx, req.ServiceID)
	if err != nil {
		return merchantdomain.WithdrawResponse{}, err
	}
	if instance.OwnerID != req.Caller {
		return merchantdomain.WithdrawResponse{}, merchantdomain.ErrNotAuthorized
	}

	if err := s.guard.acquire(instance.ID); err != nil {
		return merchantdomain.WithdrawResponse{}, err
	}
	defer s.guard.release(instance.ID)

	var resp merchantdomain.WithdrawResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.treasurySvc.BalanceTx(ctx, tx, instance.ID, instance.Asset)
		if err != nil {
			return err
		}
		if balance == 0 {
			return merchantdomain.ErrNoFunds
		}

		err = s.treasurySvc.Transfer(ctx, tx, treasurydomain.TransferRequest{
			Asset:      instance.Asset,
			FromID:     instance.ID,
			ToID:       instance.OwnerID,
			Amount:     balance,
			SourceType: treasurydomain.SourceTypeWithdrawal,
			SourceID:   instance.ID,
		})
		if err != nil {
			return err
		}

		resp = merchantdomain.WithdrawResponse{
			ServiceID: instance.ID,
			Asset:     instance.Asset,
			Amount:    balance,
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeFundsWithdrawn, instance.ID, map[string]any{
			"service_id": instance.ID.String(),
			"owner_id":   instance.OwnerID.String(),
			"asset":      instance.Asset,
			"amount":     balance,
		})
	})
	if err != nil {
		return merchantdomain.WithdrawResponse{}, err
	}

	s.obsMetrics.RecordWithdrawal(ctx, instance.Asset)
	return resp, nil
}

// RecoverAsset implements domain.Service. The configured payment asset is
// deliberately unreachable here; merchant revenue leaves only via
// WithdrawFunds.
func (s *Service) RecoverAsset(ctx context.Context, req merchantdomain.RecoverAssetRequest) (merchantdomain.RecoverAssetResponse, error) {
	instance, err := s.Get(ctx, req.ServiceID)
	if err != nil {
		return merchantdomain.RecoverAssetResponse{}, err
	}
	if instance.OwnerID != req.Caller {
		return merchantdomain.RecoverAssetResponse{}, merchantdomain.ErrNotAuthorized
	}
	if req.Asset == instance.Asset {
		return merchantdomain.RecoverAssetResponse{}, merchantdomain.ErrInvalidToken
	}

	var resp merchantdomain.RecoverAssetResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.treasurySvc.BalanceTx(ctx, tx, instance.ID, req.Asset)
		if err != nil {
			return err
		}
		if balance == 0 {
			return merchantdomain.ErrNoBalance
		}

		err = s.treasurySvc.Transfer(ctx, tx, treasurydomain.TransferRequest{
			Asset:      req.Asset,
			FromID:     instance.ID,
			ToID:       instance.OwnerID,
			Amount:     balance,
			SourceType: treasurydomain.SourceTypeRescue,
			SourceID:   instance.ID,
		})
		if err != nil {
			return err
		}

		resp = merchantdomain.RecoverAssetResponse{
			ServiceID: instance.ID,
			Asset:     req.Asset,
			Amount:    balance,
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeAssetRescued, instance.ID, map[string]any{
			"service_id": instance.ID.String(),
			"owner_id":   instance.OwnerID.String(),
			"asset":      req.Asset,
			"amount":     balance,
		})
	})
	if err != nil {
		return merchantdomain.RecoverAssetResponse{}, err
	}

	return resp, nil
}

// UpdateConfig implements domain.Service.
func (s *Service) UpdateConfig(ctx context.Context, req merchantdomain.UpdateConfigRequest) (merchantdomain.ServiceInstance, error) {
	instance, err := s.Get(ctx, req.ServiceID)
	if err != nil {
		return merchantdomain.ServiceInstance{}, err
	}
	if instance.OwnerID != req.Caller {
		return merchantdomain.ServiceInstance{}, merchantdomain.ErrNotAuthorized
	}
	if req.IntervalSeconds <= 0 {
		return merchantdomain.ServiceInstance{}, merchantdomain.ErrInvalidInterval
	}
	if req.Price < 0 {
		return merchantdomain.ServiceInstance{}, merchantdomain.ErrPriceNotSet
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.repo.UpdateInstance(ctx, tx, instance.ID, map[string]any{
			"price":            req.Price,
			"interval_seconds": req.IntervalSeconds,
			"updated_at":       now,
		})
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventdomain.TypeServiceConfigUpdated, instance.ID, map[string]any{
			"service_id":       instance.ID.String(),
			"price":            req.Price,
			"interval_seconds": req.IntervalSeconds,
		})
	})
	if err != nil {
		return merchantdomain.ServiceInstance{}, err
	}

	instance.Price = req.Price
	instance.IntervalSeconds = req.IntervalSeconds
	instance.UpdatedAt = now
	return instance, nil
}

// Pause implements domain.Service.
func (s *Service) Pause(ctx context.Context, caller, serviceID snowflake.ID) error {
	return s.setPaused(ctx, caller, serviceID, true)
}

// Unpause implements domain.Service.
func (s *Service) Unpause(ctx context.Context, caller, serviceID snowflake.ID) error {
	return s.setPaused(ctx, caller, serviceID, false)
}

func (s *Service) setPaused(ctx context.Context, caller, serviceID snowflake.ID, paused bool) error {
	instance, err := s.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	if instance.OwnerID != caller {
		return merchantdomain.ErrNotAuthorized
	}

	eventType := eventdomain.TypeServicePaused
	if !paused {
		eventType = eventdomain.TypeServiceUnpaused
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.repo.UpdateInstance(ctx, tx, instance.ID, map[string]any{
			"paused":     paused,
			"updated_at": s.clock.Now(),
		})
		if err != nil {
			return err
		}

		return s.outbox.Record(ctx, tx, eventType, instance.ID, map[string]any{
			"service_id": instance.ID.String(),
		})
	})
}

// clampFeeRate bounds an oracle-supplied rate to [0, MaxFeeBps]. The catalog
// validates writes already; this second check holds even against a registry
// returning garbage.
func clampFeeRate(rate int32) int32 {
	if rate < 0 {
		return 0
	}
	if rate > tierdomain.MaxFeeBps {
		return tierdomain.MaxFeeBps
	}
	return rate
}
