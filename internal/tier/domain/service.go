package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// OverwriteTierRequest replaces every field of a tier record. There is no
// partial update; callers resupply the full bundle.
type OverwriteTierRequest struct {
	ID              TierID
	Name            string
	Price           int64
	FeeRateBps      int32
	DurationSeconds int64
	Active          bool
}

type Service interface {
	List(ctx context.Context) ([]Tier, error)
	Get(ctx context.Context, id TierID) (Tier, error)
	// GetTx reads a tier through the caller's transaction so fee resolution
	// sees catalog state consistent with the enclosing operation.
	GetTx(ctx context.Context, tx *gorm.DB, id TierID) (Tier, error)
	// Overwrite is invoked by registry administration only; it validates the
	// fee cap and replaces the whole record.
	Overwrite(ctx context.Context, tx *gorm.DB, req OverwriteTierRequest) (Tier, error)
}

var (
	ErrUnknownTier     = errors.New("unknown_tier")
	ErrFeeRateTooHigh  = errors.New("fee_rate_too_high")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidDuration = errors.New("invalid_duration")
)
