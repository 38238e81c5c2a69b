// Package domain contains the per-service custom fee override model. An
// override has a lifecycle independent of tiers and licenses: administration
// sets or clears it, and while active it bypasses tier-based fee resolution.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type CustomFee struct {
	ServiceID  snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	FeeRateBps int32        `gorm:"not null"`
	Active     bool         `gorm:"not null;default:false"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CustomFee) TableName() string { return "custom_fees" }
