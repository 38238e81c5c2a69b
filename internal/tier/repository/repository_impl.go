package repository

import (
	"context"
	"errors"

	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() tierdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id tierdomain.TierID) (*tierdomain.Tier, error) {
	var tier tierdomain.Tier
	err := db.WithContext(ctx).Where("id = ?", id).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]tierdomain.Tier, error) {
	var tiers []tierdomain.Tier
	err := db.WithContext(ctx).Order("id ASC").Find(&tiers).Error
	return tiers, err
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, tier *tierdomain.Tier) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price", "fee_rate_bps", "duration_seconds", "active", "updated_at",
		}),
	}).Create(tier).Error
}
