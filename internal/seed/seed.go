package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	"gorm.io/gorm"
)

// Default catalog applied on first boot. Tier rows are never inserted after
// this; administration overwrites them in place.
var defaultTiers = []tierdomain.Tier{
	{
		ID:         tierdomain.TierFree,
		Name:       "free",
		Price:      0,
		FeeRateBps: 500,
		Active:     true,
	},
	{
		ID:              tierdomain.TierPro,
		Name:            "pro",
		Price:           50_000,
		FeeRateBps:      100,
		DurationSeconds: int64((30 * 24 * time.Hour).Seconds()),
		Active:          true,
	},
	{
		ID:              tierdomain.TierEnterprise,
		Name:            "enterprise",
		Price:           200_000,
		FeeRateBps:      50,
		DurationSeconds: int64((30 * 24 * time.Hour).Seconds()),
		Active:          true,
	},
}

// EnsureTierCatalog inserts any missing tier rows. Existing rows are left
// untouched so administrative overwrites survive restarts.
func EnsureTierCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range defaultTiers {
			var existing tierdomain.Tier
			err := tx.WithContext(ctx).Where("id = ?", t.ID).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			t.CreatedAt = now
			t.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&t).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsurePlatformSettings creates the singleton settings row pointing platform
// fees at the configured holder.
func EnsurePlatformSettings(db *gorm.DB, destination snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	var existing registrydomain.PlatformSettings
	err := db.WithContext(ctx).
		Where("id = ?", registrydomain.SettingsRowID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	settings := registrydomain.PlatformSettings{
		ID:            registrydomain.SettingsRowID,
		DestinationID: destination,
		UpdatedAt:     time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(&settings).Error
}
