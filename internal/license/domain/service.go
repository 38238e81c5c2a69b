package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Find returns the license for a service, nil when none was ever bought.
	Find(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (*License, error)
	// ApplyPurchase applies the renewal rule inside the caller's transaction:
	// repurchasing the current tier before it lapses stacks a full duration
	// onto the existing expiry; any other purchase resets the window to
	// now + duration, forfeiting remaining time.
	ApplyPurchase(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID, tier tierdomain.Tier, now time.Time) (License, error)
}
