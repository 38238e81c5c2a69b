// Package domain contains the tier catalog models shared by the registry.
package domain

import "time"

// Fee rates are expressed in basis points. MaxFeeBps is the global hard cap:
// the catalog enforces it at write time and every service instance re-checks
// it before applying a resolved rate.
const (
	MaxFeeBps      int32 = 5000
	BpsDenominator int64 = 10000
)

// TierID is a small fixed enumeration. Tiers are never deleted, only
// overwritten.
type TierID int16

const (
	TierFree       TierID = 0
	TierPro        TierID = 1
	TierEnterprise TierID = 2
)

func (id TierID) String() string {
	switch id {
	case TierFree:
		return "free"
	case TierPro:
		return "pro"
	case TierEnterprise:
		return "enterprise"
	default:
		return "unknown"
	}
}

// Tier bundles a purchase price, a platform fee rate, and a license duration.
type Tier struct {
	ID              TierID    `gorm:"primaryKey;autoIncrement:false"`
	Name            string    `gorm:"type:text;not null"`
	Price           int64     `gorm:"not null"`
	FeeRateBps      int32     `gorm:"not null"`
	DurationSeconds int64     `gorm:"not null"`
	Active          bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tier) TableName() string { return "tiers" }

func (t Tier) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// Purchasable reports whether the tier can be bought. The free tier is
// defaulted into, never purchased.
func (t Tier) Purchasable() bool {
	return t.Active && t.Price > 0
}
