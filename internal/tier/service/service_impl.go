package service

import (
	"context"
	"strings"

	"github.com/subgridhq/subgrid/internal/clock"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  tierdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  tierdomain.Repository
}

func NewService(p Params) tierdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tier.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context) ([]tierdomain.Tier, error) {
	return s.repo.List(ctx, s.db)
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, id tierdomain.TierID) (tierdomain.Tier, error) {
	return s.GetTx(ctx, s.db, id)
}

// GetTx implements domain.Service.
func (s *Service) GetTx(ctx context.Context, tx *gorm.DB, id tierdomain.TierID) (tierdomain.Tier, error) {
	if tx == nil {
		tx = s.db
	}
	tier, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return tierdomain.Tier{}, err
	}
	if tier == nil {
		return tierdomain.Tier{}, tierdomain.ErrUnknownTier
	}
	return *tier, nil
}

// Overwrite implements domain.Service.
func (s *Service) Overwrite(ctx context.Context, tx *gorm.DB, req tierdomain.OverwriteTierRequest) (tierdomain.Tier, error) {
	if tx == nil {
		tx = s.db
	}

	if strings.TrimSpace(req.Name) == "" {
		return tierdomain.Tier{}, tierdomain.ErrInvalidName
	}
	if req.Price < 0 {
		return tierdomain.Tier{}, tierdomain.ErrInvalidPrice
	}
	if req.FeeRateBps < 0 || req.FeeRateBps > tierdomain.MaxFeeBps {
		return tierdomain.Tier{}, tierdomain.ErrFeeRateTooHigh
	}
	if req.DurationSeconds < 0 {
		return tierdomain.Tier{}, tierdomain.ErrInvalidDuration
	}

	now := s.clock.Now()
	tier := tierdomain.Tier{
		ID:              req.ID,
		Name:            strings.TrimSpace(req.Name),
		Price:           req.Price,
		FeeRateBps:      req.FeeRateBps,
		DurationSeconds: req.DurationSeconds,
		Active:          req.Active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Upsert(ctx, tx, &tier); err != nil {
		return tierdomain.Tier{}, err
	}

	s.log.Info("tier overwritten",
		zap.String("tier", tier.ID.String()),
		zap.Int32("fee_rate_bps", tier.FeeRateBps),
		zap.Bool("active", tier.Active),
	)

	return tier, nil
}
