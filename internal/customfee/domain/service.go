package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SetCustomFeeRequest struct {
	ServiceID  snowflake.ID
	FeeRateBps int32
	Active     bool
}

type Service interface {
	// FindActive returns the override for a service when one is set and
	// active, nil otherwise. Read through the caller's transaction.
	FindActive(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (*CustomFee, error)
	Set(ctx context.Context, tx *gorm.DB, req SetCustomFeeRequest) (CustomFee, error)
	Clear(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) error
}

var (
	ErrFeeRateTooHigh = errors.New("fee_rate_too_high")
	ErrNotSet         = errors.New("custom_fee_not_set")
)
