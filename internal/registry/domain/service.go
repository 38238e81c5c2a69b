package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	customfeedomain "github.com/subgridhq/subgrid/internal/customfee/domain"
	licensedomain "github.com/subgridhq/subgrid/internal/license/domain"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
)

type CreateServiceRequest struct {
	OwnerID         snowflake.ID
	Asset           string
	Price           int64
	IntervalSeconds int64
}

type PurchaseTierRequest struct {
	Caller    snowflake.ID
	ServiceID snowflake.ID
	TierID    tierdomain.TierID
}

type SetCustomFeeRequest struct {
	Actor      snowflake.ID
	ServiceID  snowflake.ID
	FeeRateBps int32
	Active     bool
}

type Service interface {
	// CreateService mints an independent service instance and registers it
	// in the directory. Anyone may call it; only registry pause blocks it.
	CreateService(ctx context.Context, req CreateServiceRequest) (merchantdomain.ServiceInstance, error)

	// PurchaseTier is deliberately caller-unrestricted: any party may fund
	// any service's license (sponsorship model).
	PurchaseTier(ctx context.Context, req PurchaseTierRequest) (licensedomain.License, error)

	// ResolveFee is a pure read, callable from inside another component's
	// transaction, and never fails for a directory member. Precedence:
	// active custom override, then unlapsed license (live tier rate), then
	// the free tier's rate.
	ResolveFee(ctx context.Context, serviceID snowflake.ID) (int32, error)

	// PlatformDestination returns the treasury holder receiving platform fees.
	PlatformDestination(ctx context.Context) (snowflake.ID, error)

	// Administration-only operations.
	SetCustomFee(ctx context.Context, req SetCustomFeeRequest) (customfeedomain.CustomFee, error)
	ClearCustomFee(ctx context.Context, actor, serviceID snowflake.ID) error
	UpdateTier(ctx context.Context, actor snowflake.ID, req tierdomain.OverwriteTierRequest) (tierdomain.Tier, error)
	SetPlatformDestination(ctx context.Context, actor, destination snowflake.ID) error
	Pause(ctx context.Context, actor snowflake.ID) error
	Unpause(ctx context.Context, actor snowflake.ID) error

	Settings(ctx context.Context) (PlatformSettings, error)
}

var (
	ErrSystemPaused       = errors.New("system_paused")
	ErrTierNotPurchasable = errors.New("tier_not_purchasable")
	ErrInvalidAddress     = errors.New("invalid_address")
	ErrInvalidInterval    = errors.New("invalid_interval")
)
