// Package domain contains the mutation event outbox model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Every state mutation in the engine records exactly one Event in the same
// database transaction as the mutation itself.
const (
	TypeServiceCreated         = "service.created"
	TypeServiceConfigUpdated   = "service.config_updated"
	TypeServicePaused          = "service.paused"
	TypeServiceUnpaused        = "service.unpaused"
	TypeSubscriptionRecorded   = "subscription.recorded"
	TypeTierPurchased          = "tier.purchased"
	TypeTierUpdated            = "tier.updated"
	TypeCustomFeeSet           = "custom_fee.set"
	TypeCustomFeeCleared       = "custom_fee.cleared"
	TypeFundsWithdrawn         = "funds.withdrawn"
	TypeAssetRescued           = "asset.rescued"
	TypeRegistryPaused         = "registry.paused"
	TypeRegistryUnpaused       = "registry.unpaused"
	TypeDestinationChanged     = "platform_destination.changed"
	TypeTreasuryDeposit        = "treasury.deposited"
)

// Event captures outbox events for billing workflows.
type Event struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventType   string            `gorm:"type:text;not null;index"`
	SubjectID   snowflake.ID      `gorm:"not null;index"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey   *string           `gorm:"type:text;uniqueIndex:ux_events_dedupe"`
	Published   bool              `gorm:"not null;default:false"`
	PublishedAt *time.Time        `gorm:""`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "events" }
