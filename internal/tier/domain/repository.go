package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id TierID) (*Tier, error)
	List(ctx context.Context, db *gorm.DB) ([]Tier, error)
	Upsert(ctx context.Context, db *gorm.DB, tier *Tier) error
}
