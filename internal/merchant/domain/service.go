package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscribeRequest struct {
	Caller    snowflake.ID
	ServiceID snowflake.ID
}

type SubscribeResponse struct {
	ServiceID     snowflake.ID `json:"service_id"`
	SubscriberID  snowflake.ID `json:"subscriber_id"`
	AppliedFeeBps int32        `json:"applied_fee_bps"`
	FeeAmount     int64        `json:"fee_amount"`
	NetAmount     int64        `json:"net_amount"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

type SubscriptionDetails struct {
	ServiceID    snowflake.ID  `json:"service_id"`
	SubscriberID snowflake.ID  `json:"subscriber_id"`
	Subscribed   bool          `json:"subscribed"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
	Remaining    time.Duration `json:"remaining_seconds"`
}

type WithdrawRequest struct {
	Caller    snowflake.ID
	ServiceID snowflake.ID
}

type WithdrawResponse struct {
	ServiceID snowflake.ID `json:"service_id"`
	Asset     string       `json:"asset"`
	Amount    int64        `json:"amount"`
}

type RecoverAssetRequest struct {
	Caller    snowflake.ID
	ServiceID snowflake.ID
	Asset     string
}

type RecoverAssetResponse struct {
	ServiceID snowflake.ID `json:"service_id"`
	Asset     string       `json:"asset"`
	Amount    int64        `json:"amount"`
}

type UpdateConfigRequest struct {
	Caller          snowflake.ID
	ServiceID       snowflake.ID
	Price           int64
	IntervalSeconds int64
}

type Service interface {
	Get(ctx context.Context, serviceID snowflake.ID) (ServiceInstance, error)
	Subscribe(ctx context.Context, req SubscribeRequest) (SubscribeResponse, error)
	IsSubscribed(ctx context.Context, serviceID, subscriberID snowflake.ID) (bool, error)
	RemainingTime(ctx context.Context, serviceID, subscriberID snowflake.ID) (time.Duration, error)
	GetSubscriptionDetails(ctx context.Context, serviceID, subscriberID snowflake.ID) (SubscriptionDetails, error)
	WithdrawFunds(ctx context.Context, req WithdrawRequest) (WithdrawResponse, error)
	RecoverAsset(ctx context.Context, req RecoverAssetRequest) (RecoverAssetResponse, error)
	UpdateConfig(ctx context.Context, req UpdateConfigRequest) (ServiceInstance, error)
	Pause(ctx context.Context, caller, serviceID snowflake.ID) error
	Unpause(ctx context.Context, caller, serviceID snowflake.ID) error
}

// FeeOracle is the registry-side query interface a service instance consults
// mid-subscribe. It is injected at construction so a misbehaving registry can
// be simulated in tests; the instance clamps whatever rate comes back.
type FeeOracle interface {
	ResolveFee(ctx context.Context, serviceID snowflake.ID) (int32, error)
	PlatformDestination(ctx context.Context) (snowflake.ID, error)
}

var (
	ErrSystemPaused      = errors.New("system_paused")
	ErrPriceNotSet       = errors.New("price_not_set")
	ErrInvalidInterval   = errors.New("invalid_interval")
	ErrInvalidAddress    = errors.New("invalid_address")
	ErrNotAuthorized     = errors.New("not_authorized")
	ErrNoFunds           = errors.New("no_funds")
	ErrNoBalance         = errors.New("no_balance")
	ErrInvalidToken      = errors.New("invalid_token")
	ErrReentrancyBlocked = errors.New("reentrancy_blocked")
)
