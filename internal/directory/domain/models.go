// Package domain contains the authoritative service directory: the set of
// identities the registry will resolve fees for. Membership is write-once.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ServiceRecord struct {
	ServiceID snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	OwnerID   snowflake.ID `gorm:"not null;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ServiceRecord) TableName() string { return "service_records" }
