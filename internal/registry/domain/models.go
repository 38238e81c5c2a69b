// Package domain contains the registry's own state: the platform settings
// singleton holding the fee destination and the creation/purchase halt flag.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PlatformSettings struct {
	ID            int16        `gorm:"primaryKey;autoIncrement:false"`
	DestinationID snowflake.ID `gorm:"not null"`
	Paused        bool         `gorm:"not null;default:false"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PlatformSettings) TableName() string { return "platform_settings" }

// SettingsRowID is the fixed primary key of the singleton row.
const SettingsRowID int16 = 1
