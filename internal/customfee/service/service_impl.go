package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/clock"
	customfeedomain "github.com/subgridhq/subgrid/internal/customfee/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"github.com/subgridhq/subgrid/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	store repository.Repository[customfeedomain.CustomFee]
}

func NewService(p Params) customfeedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customfee.service"),
		clock: p.Clock,
		store: repository.ProvideStore[customfeedomain.CustomFee](p.DB),
	}
}

// FindActive implements domain.Service.
func (s *Service) FindActive(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (*customfeedomain.CustomFee, error) {
	store := s.store
	if tx != nil {
		store = store.WithTrx(tx)
	}
	return store.FindOne(ctx, &customfeedomain.CustomFee{ServiceID: serviceID, Active: true})
}

// Set implements domain.Service.
func (s *Service) Set(ctx context.Context, tx *gorm.DB, req customfeedomain.SetCustomFeeRequest) (customfeedomain.CustomFee, error) {
	if tx == nil {
		tx = s.db
	}

	if req.FeeRateBps < 0 || req.FeeRateBps > tierdomain.MaxFeeBps {
		return customfeedomain.CustomFee{}, customfeedomain.ErrFeeRateTooHigh
	}

	now := s.clock.Now()
	fee := customfeedomain.CustomFee{
		ServiceID:  req.ServiceID,
		FeeRateBps: req.FeeRateBps,
		Active:     req.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"fee_rate_bps", "active", "updated_at",
		}),
	}).Create(&fee).Error
	if err != nil {
		return customfeedomain.CustomFee{}, err
	}

	return fee, nil
}

// Clear implements domain.Service.
func (s *Service) Clear(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}

	res := tx.WithContext(ctx).
		Model(&customfeedomain.CustomFee{}).
		Where("service_id = ?", serviceID).
		Updates(map[string]any{
			"active":     false,
			"updated_at": s.clock.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return customfeedomain.ErrNotSet
	}
	return nil
}
