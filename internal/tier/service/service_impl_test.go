package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subgridhq/subgrid/internal/clock"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	tierrepository "github.com/subgridhq/subgrid/internal/tier/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) tierdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tierdomain.Tier{}))

	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  tierrepository.Provide(),
	})
}

func TestOverwriteCreatesAndReplaces(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	created, err := svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID:              tierdomain.TierPro,
		Name:            "pro",
		Price:           50_000,
		FeeRateBps:      100,
		DurationSeconds: 2_592_000,
		Active:          true,
	})
	require.NoError(t, err)
	assert.True(t, created.Purchasable())

	replaced, err := svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID:              tierdomain.TierPro,
		Name:            "pro",
		Price:           60_000,
		FeeRateBps:      150,
		DurationSeconds: 2_592_000,
		Active:          false,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60_000), replaced.Price)
	assert.False(t, replaced.Purchasable())

	fetched, err := svc.Get(ctx, tierdomain.TierPro)
	require.NoError(t, err)
	assert.Equal(t, int32(150), fetched.FeeRateBps)
}

func TestOverwriteValidation(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID: tierdomain.TierPro, Name: "pro", Price: 1, FeeRateBps: tierdomain.MaxFeeBps + 1,
	})
	assert.ErrorIs(t, err, tierdomain.ErrFeeRateTooHigh)

	_, err = svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID: tierdomain.TierPro, Name: " ", Price: 1, FeeRateBps: 100,
	})
	assert.ErrorIs(t, err, tierdomain.ErrInvalidName)

	_, err = svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID: tierdomain.TierPro, Name: "pro", Price: -1, FeeRateBps: 100,
	})
	assert.ErrorIs(t, err, tierdomain.ErrInvalidPrice)

	_, err = svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID: tierdomain.TierPro, Name: "pro", Price: 1, FeeRateBps: 100, DurationSeconds: -1,
	})
	assert.ErrorIs(t, err, tierdomain.ErrInvalidDuration)
}

func TestGetUnknownTier(t *testing.T) {
	svc := setup(t)

	_, err := svc.Get(context.Background(), tierdomain.TierID(9))
	assert.ErrorIs(t, err, tierdomain.ErrUnknownTier)
}

func TestFreeTierNeverPurchasable(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	free, err := svc.Overwrite(ctx, nil, tierdomain.OverwriteTierRequest{
		ID:         tierdomain.TierFree,
		Name:       "free",
		Price:      0,
		FeeRateBps: 500,
		Active:     true,
	})
	require.NoError(t, err)
	assert.False(t, free.Purchasable())
}

func TestListReturnsCatalogOrder(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	for _, req := range []tierdomain.OverwriteTierRequest{
		{ID: tierdomain.TierEnterprise, Name: "enterprise", Price: 200_000, FeeRateBps: 50, DurationSeconds: 2_592_000, Active: true},
		{ID: tierdomain.TierFree, Name: "free", FeeRateBps: 500, Active: true},
		{ID: tierdomain.TierPro, Name: "pro", Price: 50_000, FeeRateBps: 100, DurationSeconds: 2_592_000, Active: true},
	} {
		_, err := svc.Overwrite(ctx, nil, req)
		require.NoError(t, err)
	}

	tiers, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	assert.Equal(t, tierdomain.TierFree, tiers[0].ID)
	assert.Equal(t, tierdomain.TierPro, tiers[1].ID)
	assert.Equal(t, tierdomain.TierEnterprise, tiers[2].ID)
}
