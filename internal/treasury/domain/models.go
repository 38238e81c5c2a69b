// Package domain contains the treasury models: per-(holder, asset) balance
// accounts and the posting records that move value between them. Every
// payment leg in the engine is a treasury transfer executed inside the
// operation's transaction, so a failed leg rolls the whole operation back.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TransferSourceType string

const (
	SourceTypeSubscriptionFee TransferSourceType = "subscription_fee"
	SourceTypeSubscriptionNet TransferSourceType = "subscription_net"
	SourceTypeTierPurchase    TransferSourceType = "tier_purchase"
	SourceTypeWithdrawal      TransferSourceType = "withdrawal"
	SourceTypeRescue          TransferSourceType = "rescue"
	SourceTypeDeposit         TransferSourceType = "deposit"
)

// Account tracks one holder's balance in one asset.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	HolderID  snowflake.ID `gorm:"not null;uniqueIndex:ux_accounts_holder_asset,priority:1"`
	Asset     string       `gorm:"type:text;not null;uniqueIndex:ux_accounts_holder_asset,priority:2"`
	Balance   int64        `gorm:"not null;default:0"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "treasury_accounts" }

// Transfer is the immutable posting record of one completed movement.
type Transfer struct {
	ID         snowflake.ID       `gorm:"primaryKey"`
	Asset      string             `gorm:"type:text;not null;index"`
	FromID     snowflake.ID       `gorm:"not null;index"`
	ToID       snowflake.ID       `gorm:"not null;index"`
	Amount     int64              `gorm:"not null"`
	SourceType TransferSourceType `gorm:"type:text;not null"`
	SourceID   snowflake.ID       `gorm:"not null;index"`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Transfer) TableName() string { return "treasury_transfers" }
