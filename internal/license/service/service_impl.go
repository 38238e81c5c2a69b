package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	licensedomain "github.com/subgridhq/subgrid/internal/license/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) licensedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("license.service"),
	}
}

// Find implements domain.Service.
func (s *Service) Find(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (*licensedomain.License, error) {
	if tx == nil {
		tx = s.db
	}

	var license licensedomain.License
	err := tx.WithContext(ctx).Where("service_id = ?", serviceID).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// ApplyPurchase implements domain.Service.
func (s *Service) ApplyPurchase(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID, tier tierdomain.Tier, now time.Time) (licensedomain.License, error) {
	if tx == nil {
		tx = s.db
	}

	current, err := s.Find(ctx, tx, serviceID)
	if err != nil {
		return licensedomain.License{}, err
	}

	var expiresAt time.Time
	stacked := current != nil && current.TierID == tier.ID && current.ActiveAt(now)
	if stacked {
		expiresAt = current.ExpiresAt.Add(tier.Duration())
	} else {
		expiresAt = now.Add(tier.Duration())
	}

	license := licensedomain.License{
		ServiceID: serviceID,
		TierID:    tier.ID,
		ExpiresAt: expiresAt,
		UpdatedAt: now,
	}

	if current == nil {
		license.CreatedAt = now
		if err := tx.WithContext(ctx).Create(&license).Error; err != nil {
			return licensedomain.License{}, err
		}
	} else {
		license.CreatedAt = current.CreatedAt
		err := tx.WithContext(ctx).
			Model(&licensedomain.License{}).
			Where("service_id = ?", serviceID).
			Updates(map[string]any{
				"tier_id":    license.TierID,
				"expires_at": license.ExpiresAt,
				"updated_at": license.UpdatedAt,
			}).Error
		if err != nil {
			return licensedomain.License{}, err
		}
	}

	s.log.Info("license purchase applied",
		zap.String("service_id", serviceID.String()),
		zap.String("tier", tier.ID.String()),
		zap.Bool("stacked", stacked),
		zap.Time("expires_at", expiresAt),
	)

	return license, nil
}
