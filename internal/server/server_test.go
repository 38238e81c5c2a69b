package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
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
	merchantservice "github.com/subgridhq/subgrid/internal/merchant/service"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	registryservice "github.com/subgridhq/subgrid/internal/registry/service"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	tierrepository "github.com/subgridhq/subgrid/internal/tier/repository"
	tierservice "github.com/subgridhq/subgrid/internal/tier/service"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	treasuryservice "github.com/subgridhq/subgrid/internal/treasury/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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

type testEnv struct {
	engine *gin.Engine
	node   *snowflake.Node
	clk    *clock.FakeClock
	admin  snowflake.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	admin := node.Generate()
	authzSvc := &fakeAuthz{admin: admin}
	outbox := events.NewOutbox(events.Params{DB: db, Log: log, GenID: node, Clock: clk})
	cfg := config.Config{HTTPAddr: ":0", PlatformHolderID: 777}

	month := int64((30 * 24 * time.Hour).Seconds())
	for _, tier := range []tierdomain.Tier{
		{ID: tierdomain.TierFree, Name: "free", FeeRateBps: 500, Active: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now()},
		{ID: tierdomain.TierPro, Name: "pro", Price: 50_000, FeeRateBps: 100, DurationSeconds: month, Active: true, CreatedAt: clk.Now(), UpdatedAt: clk.Now()},
	} {
		require.NoError(t, db.Create(&tier).Error)
	}

	treasurySvc := treasuryservice.NewService(treasuryservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, AuthzSvc: authzSvc, Outbox: outbox,
	})
	tierSvc := tierservice.NewService(tierservice.Params{DB: db, Log: log, Clock: clk, Repo: tierrepository.Provide()})
	directorySvc := directoryservice.NewService(directoryservice.Params{DB: db, Log: log})
	merchantRepo := merchantrepository.Provide()

	registrySvc := registryservice.NewService(registryservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Config:       cfg,
		AuthzSvc:     authzSvc,
		TierSvc:      tierSvc,
		CustomFeeSvc: customfeeservice.NewService(customfeeservice.Params{DB: db, Log: log, Clock: clk}),
		LicenseSvc:   licenseservice.NewService(licenseservice.Params{DB: db, Log: log}),
		DirectorySvc: directorySvc,
		TreasurySvc:  treasurySvc,
		MerchantRepo: merchantRepo,
		Outbox:       outbox,
	})

	merchantSvc := merchantservice.NewService(merchantservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        merchantRepo,
		Oracle:      registryservice.AsFeeOracle(registrySvc),
		TreasurySvc: treasurySvc,
		Outbox:      outbox,
	})

	engine := NewEngine(log)
	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		DB:           db,
		GenID:        node,
		RegistrySvc:  registrySvc,
		MerchantSvc:  merchantSvc,
		TierSvc:      tierSvc,
		DirectorySvc: directorySvc,
		TreasurySvc:  treasurySvc,
		Outbox:       outbox,
	})

	return &testEnv{engine: engine, node: node, clk: clk, admin: admin}
}

func (e *testEnv) request(t *testing.T, method, path string, actor snowflake.ID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != 0 {
		req.Header.Set("X-Actor-ID", actor.String())
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Data
}

func TestServiceLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	owner := env.node.Generate()

	rec := env.request(t, http.MethodPost, "/v1/services", owner, map[string]any{
		"asset":            "credits",
		"price":            1000,
		"interval_seconds": 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	serviceID := decodeData(t, rec)["ID"]
	require.NotNil(t, serviceID)

	id := fmt.Sprintf("%v", serviceID)
	rec = env.request(t, http.MethodGet, "/v1/services/"+id, 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Fund a subscriber through the administrative deposit endpoint, then
	// subscribe and check the split.
	subscriber := env.node.Generate()
	rec = env.request(t, http.MethodPost, "/v1/admin/treasury/deposit", env.admin, map[string]any{
		"holder_id": subscriber.String(),
		"asset":     "credits",
		"amount":    1000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodPost, "/v1/services/"+id+"/subscriptions", subscriber, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, float64(500), data["applied_fee_bps"])
	assert.Equal(t, float64(50), data["fee_amount"])
	assert.Equal(t, float64(950), data["net_amount"])

	rec = env.request(t, http.MethodGet, "/v1/services/"+id+"/subscriptions/"+subscriber.String(), 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeData(t, rec)["subscribed"])
}

func TestErrorMappingOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// Unknown service resolves to 404.
	rec := env.request(t, http.MethodGet, "/v1/services/"+env.node.Generate().String()+"/fee", 0, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Mutations without an actor header are rejected.
	rec = env.request(t, http.MethodPost, "/v1/services", 0, map[string]any{
		"asset":            "credits",
		"interval_seconds": 3600,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Administrative surface rejects non-administrators.
	rec = env.request(t, http.MethodPost, "/v1/admin/platform/pause", env.node.Generate(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Subscribing without funds surfaces as a conflict.
	owner := env.node.Generate()
	rec = env.request(t, http.MethodPost, "/v1/services", owner, map[string]any{
		"asset":            "credits",
		"price":            1000,
		"interval_seconds": 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := fmt.Sprintf("%v", decodeData(t, rec)["ID"])

	rec = env.request(t, http.MethodPost, "/v1/services/"+id+"/subscriptions", env.node.Generate(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTierCatalogOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/v1/tiers", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data []tierdomain.Tier `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 2)
	assert.Equal(t, tierdomain.TierFree, payload.Data[0].ID)

	rec = env.request(t, http.MethodPut, "/v1/admin/tiers/1", env.admin, map[string]any{
		"name":             "pro",
		"price":            60000,
		"fee_rate_bps":     200,
		"duration_seconds": 2592000,
		"active":           true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodGet, "/v1/tiers/1", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(200), decodeData(t, rec)["FeeRateBps"])
}
