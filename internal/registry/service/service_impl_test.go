package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subgridhq/subgrid/internal/authz"
	"github.com/subgridhq/subgrid/internal/clock"
	"github.com/subgridhq/subgrid/internal/config"
	customfeedomain "github.com/subgridhq/subgrid/internal/customfee/domain"
	customfeeservice "github.com/subgridhq/subgrid/internal/customfee/service"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	directoryservice "github.com/subgridhq/subgrid/internal/directory/service"
	"github.com/subgridhq/subgrid/internal/events"
	eventdomain "github.com/subgridhq/subgrid/internal/events/domain"
	licensedomain "github.com/subgridhq/subgrid/internal/license/domain"
	licenseservice "github.com/subgridhq/subgrid/internal/license/service"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	merchantrepository "github.com/subgridhq/subgrid/internal/merchant/repository"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	tierrepository "github.com/subgridhq/subgrid/internal/tier/repository"
	tierservice "github.com/subgridhq/subgrid/internal/tier/service"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	treasuryservice "github.com/subgridhq/subgrid/internal/treasury/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const platformHolderID int64 = 777

type fakeAuthz struct {
	admin snowflake.ID
}

func (f *fakeAuthz) IsAdministrator(ctx context.Context, actor snowflake.ID) (bool, error) {
	return actor == f.admin, nil
}

func (f *fakeAuthz) RequireAdministrator(ctx context.Context, actor snowflake.ID) error {
	if actor != f.admin {
		return authz.ErrNotAuthorized
	}
	return nil
}

func (f *fakeAuthz) GrantAdministrator(ctx context.Context, actor snowflake.ID) error {
	return nil
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	admin    snowflake.ID
	treasury treasurydomain.Service
	svc      registrydomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tierdomain.Tier{},
		&customfeedomain.CustomFee{},
		&licensedomain.License{},
		&directorydomain.ServiceRecord{},
		&merchantdomain.ServiceInstance{},
		&merchantdomain.Entitlement{},
		&treasurydomain.Account{},
		&treasurydomain.Transfer{},
		&registrydomain.PlatformSettings{},
		&eventdomain.Event{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	admin := node.Generate()
	authzSvc := &fakeAuthz{admin: admin}
	outbox := events.NewOutbox(events.Params{DB: db, Log: log, GenID: node, Clock: clk})

	seedTiers(t, db, clk.Now())

	treasurySvc := treasuryservice.NewService(treasuryservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		AuthzSvc: authzSvc,
		Outbox:   outbox,
	})

	svc := NewService(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Config:       config.Config{PlatformHolderID: platformHolderID},
		AuthzSvc:     authzSvc,
		TierSvc:      tierservice.NewService(tierservice.Params{DB: db, Log: log, Clock: clk, Repo: tierrepository.Provide()}),
		CustomFeeSvc: customfeeservice.NewService(customfeeservice.Params{DB: db, Log: log, Clock: clk}),
		LicenseSvc:   licenseservice.NewService(licenseservice.Params{DB: db, Log: log}),
		DirectorySvc: directoryservice.NewService(directoryservice.Params{DB: db, Log: log}),
		TreasurySvc:  treasurySvc,
		MerchantRepo: merchantrepository.Provide(),
		Outbox:       outbox,
	})

	return &fixture{
		db:       db,
		node:     node,
		clk:      clk,
		admin:    admin,
		treasury: treasurySvc,
		svc:      svc,
	}
}

func seedTiers(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()
	month := int64((30 * 24 * time.Hour).Seconds())
	tiers := []tierdomain.Tier{
		{ID: tierdomain.TierFree, Name: "free", Price: 0, FeeRateBps: 500, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: tierdomain.TierPro, Name: "pro", Price: 50_000, FeeRateBps: 100, DurationSeconds: month, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: tierdomain.TierEnterprise, Name: "enterprise", Price: 200_000, FeeRateBps: 50, DurationSeconds: month, Active: true, CreatedAt: now, UpdatedAt: now},
	}
	for i := range tiers {
		require.NoError(t, db.Create(&tiers[i]).Error)
	}
}

func (f *fixture) createService(t *testing.T) merchantdomain.ServiceInstance {
	t.Helper()
	instance, err := f.svc.CreateService(context.Background(), registrydomain.CreateServiceRequest{
		OwnerID:         f.node.Generate(),
		Asset:           "credits",
		Price:           1000,
		IntervalSeconds: 3600,
	})
	require.NoError(t, err)
	return instance
}

func (f *fixture) fund(t *testing.T, holder snowflake.ID, asset string, amount int64) {
	t.Helper()
	_, err := f.treasury.Deposit(context.Background(), treasurydomain.DepositRequest{
		Actor:    f.admin,
		HolderID: holder,
		Asset:    asset,
		Amount:   amount,
	})
	require.NoError(t, err)
}

func TestCreateServiceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateService(ctx, registrydomain.CreateServiceRequest{
		OwnerID:         0,
		Asset:           "credits",
		IntervalSeconds: 3600,
	})
	assert.ErrorIs(t, err, registrydomain.ErrInvalidAddress)

	_, err = f.svc.CreateService(ctx, registrydomain.CreateServiceRequest{
		OwnerID:         f.node.Generate(),
		Asset:           "  ",
		IntervalSeconds: 3600,
	})
	assert.ErrorIs(t, err, registrydomain.ErrInvalidAddress)

	_, err = f.svc.CreateService(ctx, registrydomain.CreateServiceRequest{
		OwnerID: f.node.Generate(),
		Asset:   "credits",
	})
	assert.ErrorIs(t, err, registrydomain.ErrInvalidInterval)
}

func TestCreateServiceRegistersDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)

	var record directorydomain.ServiceRecord
	require.NoError(t, f.db.Where("service_id = ?", instance.ID).First(&record).Error)
	assert.Equal(t, instance.OwnerID, record.OwnerID)

	var created int64
	require.NoError(t, f.db.Model(&eventdomain.Event{}).
		Where("event_type = ?", eventdomain.TypeServiceCreated).
		Count(&created).Error)
	assert.Equal(t, int64(1), created)

	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(500), rate)
}

func TestResolveFeeUnknownService(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ResolveFee(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, directorydomain.ErrUnknownService)
}

func TestPurchaseTierAppliesLicense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 50_000)

	license, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller:    buyer,
		ServiceID: instance.ID,
		TierID:    tierdomain.TierPro,
	})
	require.NoError(t, err)
	assert.Equal(t, f.clk.Now().Add(30*24*time.Hour), license.ExpiresAt)

	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(100), rate)

	destBalance, err := f.treasury.Balance(ctx, snowflake.ID(platformHolderID), "credits")
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), destBalance)
}

func TestPurchaseTierStacksSameTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clk.Now()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 100_000)

	_, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	require.NoError(t, err)

	f.clk.Advance(24 * time.Hour)
	license, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	require.NoError(t, err)

	assert.Equal(t, start.Add(2*30*24*time.Hour), license.ExpiresAt)
}

func TestPurchaseTierSwitchResetsWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 250_000)

	_, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	require.NoError(t, err)

	f.clk.Advance(24 * time.Hour)
	license, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierEnterprise,
	})
	require.NoError(t, err)

	// Remaining pro time is forfeited; the window restarts from purchase.
	assert.Equal(t, f.clk.Now().Add(30*24*time.Hour), license.ExpiresAt)

	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(50), rate)
}

func TestResolveFeeLapsedLicenseFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 50_000)

	_, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	require.NoError(t, err)

	f.clk.Advance(31 * 24 * time.Hour)
	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(500), rate)
}

func TestResolveFeeCustomOverrideWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 50_000)

	_, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	require.NoError(t, err)

	_, err = f.svc.SetCustomFee(ctx, registrydomain.SetCustomFeeRequest{
		Actor:      f.admin,
		ServiceID:  instance.ID,
		FeeRateBps: 25,
		Active:     true,
	})
	require.NoError(t, err)

	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(25), rate)

	require.NoError(t, f.svc.ClearCustomFee(ctx, f.admin, instance.ID))

	rate, err = f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(100), rate)
}

func TestResolveFeeInactiveOverrideIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)

	_, err := f.svc.SetCustomFee(ctx, registrydomain.SetCustomFeeRequest{
		Actor:      f.admin,
		ServiceID:  instance.ID,
		FeeRateBps: 25,
		Active:     false,
	})
	require.NoError(t, err)

	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(500), rate)
}

func TestTierEditIsRetroactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 50_000)

	_, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	require.NoError(t, err)

	month := int64((30 * 24 * time.Hour).Seconds())
	_, err = f.svc.UpdateTier(ctx, f.admin, tierdomain.OverwriteTierRequest{
		ID:              tierdomain.TierPro,
		Name:            "pro",
		Price:           50_000,
		FeeRateBps:      200,
		DurationSeconds: month,
		Active:          true,
	})
	require.NoError(t, err)

	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(200), rate)
}

func TestUpdateTierEnforcesCap(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateTier(context.Background(), f.admin, tierdomain.OverwriteTierRequest{
		ID:         tierdomain.TierPro,
		Name:       "pro",
		Price:      50_000,
		FeeRateBps: tierdomain.MaxFeeBps + 1,
		Active:     true,
	})
	assert.ErrorIs(t, err, tierdomain.ErrFeeRateTooHigh)
}

func TestSetCustomFeeEnforcesCapAndAuthz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)

	_, err := f.svc.SetCustomFee(ctx, registrydomain.SetCustomFeeRequest{
		Actor:      f.node.Generate(),
		ServiceID:  instance.ID,
		FeeRateBps: 25,
		Active:     true,
	})
	assert.ErrorIs(t, err, authz.ErrNotAuthorized)

	_, err = f.svc.SetCustomFee(ctx, registrydomain.SetCustomFeeRequest{
		Actor:      f.admin,
		ServiceID:  instance.ID,
		FeeRateBps: tierdomain.MaxFeeBps + 1,
		Active:     true,
	})
	assert.ErrorIs(t, err, customfeedomain.ErrFeeRateTooHigh)

	_, err = f.svc.SetCustomFee(ctx, registrydomain.SetCustomFeeRequest{
		Actor:      f.admin,
		ServiceID:  f.node.Generate(),
		FeeRateBps: 25,
		Active:     true,
	})
	assert.ErrorIs(t, err, directorydomain.ErrUnknownService)
}

func TestPurchaseTierRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()

	_, err := f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: f.node.Generate(), TierID: tierdomain.TierPro,
	})
	assert.ErrorIs(t, err, directorydomain.ErrUnknownService)

	_, err = f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierFree,
	})
	assert.ErrorIs(t, err, registrydomain.ErrTierNotPurchasable)

	_, err = f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	assert.ErrorIs(t, err, treasurydomain.ErrInsufficientFunds)

	var licenses int64
	require.NoError(t, f.db.Model(&licensedomain.License{}).Count(&licenses).Error)
	assert.Zero(t, licenses)
}

func TestPauseBlocksCreationAndPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instance := f.createService(t)
	buyer := f.node.Generate()
	f.fund(t, buyer, "credits", 50_000)

	assert.ErrorIs(t, f.svc.Pause(ctx, buyer), authz.ErrNotAuthorized)
	require.NoError(t, f.svc.Pause(ctx, f.admin))

	_, err := f.svc.CreateService(ctx, registrydomain.CreateServiceRequest{
		OwnerID:         f.node.Generate(),
		Asset:           "credits",
		IntervalSeconds: 3600,
	})
	assert.ErrorIs(t, err, registrydomain.ErrSystemPaused)

	_, err = f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	assert.ErrorIs(t, err, registrydomain.ErrSystemPaused)

	// Fee resolution stays live for already-registered services.
	rate, err := f.svc.ResolveFee(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(500), rate)

	require.NoError(t, f.svc.Unpause(ctx, f.admin))
	_, err = f.svc.PurchaseTier(ctx, registrydomain.PurchaseTierRequest{
		Caller: buyer, ServiceID: instance.ID, TierID: tierdomain.TierPro,
	})
	assert.NoError(t, err)
}

func TestSetPlatformDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next := f.node.Generate()
	assert.ErrorIs(t, f.svc.SetPlatformDestination(ctx, f.node.Generate(), next), authz.ErrNotAuthorized)
	assert.ErrorIs(t, f.svc.SetPlatformDestination(ctx, f.admin, 0), registrydomain.ErrInvalidAddress)

	require.NoError(t, f.svc.SetPlatformDestination(ctx, f.admin, next))

	destination, err := f.svc.PlatformDestination(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, destination)
}
