// Package domain contains the service instance and subscriber entitlement
// models. Instances share one behavior template but hold fully disjoint
// state: config, entitlements, and treasury balances are all keyed by the
// instance id.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ServiceInstance is one merchant's billing endpoint.
type ServiceInstance struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	OwnerID         snowflake.ID `gorm:"not null;index"`
	Asset           string       `gorm:"type:text;not null"`
	Price           int64        `gorm:"not null"`
	IntervalSeconds int64        `gorm:"not null"`
	Paused          bool         `gorm:"not null;default:false"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ServiceInstance) TableName() string { return "service_instances" }

func (s ServiceInstance) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Entitlement is a subscriber's paid-for access window on one instance.
// Lapsed entitlements keep their row; expiry in the past means no access.
type Entitlement struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	ServiceID    snowflake.ID `gorm:"not null;uniqueIndex:ux_entitlements_service_subscriber,priority:1"`
	SubscriberID snowflake.ID `gorm:"not null;uniqueIndex:ux_entitlements_service_subscriber,priority:2"`
	ExpiresAt    time.Time    `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entitlement) TableName() string { return "entitlements" }

// ActiveAt reports whether the window covers the given time.
func (e Entitlement) ActiveAt(now time.Time) bool {
	return e.ExpiresAt.After(now)
}
