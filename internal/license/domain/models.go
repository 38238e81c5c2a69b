// Package domain contains the per-service license ledger. The zero value —
// no row — means no license; rows are created on first purchase and never
// deleted, a lapsed license is one whose expiry has passed.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
)

type License struct {
	ServiceID snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	TierID    tierdomain.TierID `gorm:"not null"`
	ExpiresAt time.Time         `gorm:"not null"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (License) TableName() string { return "licenses" }

// ActiveAt reports whether the license confers its tier at the given time.
func (l License) ActiveAt(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
