package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/subgridhq/subgrid/internal/authz"
	"github.com/subgridhq/subgrid/internal/clock"
	"github.com/subgridhq/subgrid/internal/events"
	eventdomain "github.com/subgridhq/subgrid/internal/events/domain"
	obsmetrics "github.com/subgridhq/subgrid/internal/observability/metrics"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	AuthzSvc   authz.Service
	Outbox     *events.Outbox
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	authzSvc   authz.Service
	outbox     *events.Outbox
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) treasurydomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("treasury.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		authzSvc:   p.AuthzSvc,
		outbox:     p.Outbox,
		obsMetrics: p.ObsMetrics,
	}
}

// Transfer implements domain.Service.
func (s *Service) Transfer(ctx context.Context, tx *gorm.DB, req treasurydomain.TransferRequest) error {
	if tx == nil {
		tx = s.db
	}

	asset := strings.TrimSpace(req.Asset)
	if asset == "" {
		return treasurydomain.ErrInvalidAsset
	}
	if req.Amount <= 0 {
		return treasurydomain.ErrInvalidAmount
	}
	if req.FromID == req.ToID {
		return treasurydomain.ErrSameAccount
	}

	now := s.clock.Now()

	// Debit leg: the conditional update makes overdraw impossible even if
	// two operations race on the same account outside sqlite's serializer.
	res := tx.WithContext(ctx).
		Model(&treasurydomain.Account{}).
		Where("holder_id = ? AND asset = ? AND balance >= ?", req.FromID, asset, req.Amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", req.Amount),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return treasurydomain.ErrInsufficientFunds
	}

	if err := s.credit(ctx, tx, req.ToID, asset, req.Amount, now); err != nil {
		return err
	}

	transfer := treasurydomain.Transfer{
		ID:         s.genID.Generate(),
		Asset:      asset,
		FromID:     req.FromID,
		ToID:       req.ToID,
		Amount:     req.Amount,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		CreatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(&transfer).Error; err != nil {
		return err
	}

	s.obsMetrics.RecordTransfer(ctx, string(req.SourceType))
	return nil
}

// Deposit implements domain.Service.
func (s *Service) Deposit(ctx context.Context, req treasurydomain.DepositRequest) (treasurydomain.Account, error) {
	if err := s.authzSvc.RequireAdministrator(ctx, req.Actor); err != nil {
		return treasurydomain.Account{}, err
	}

	asset := strings.TrimSpace(req.Asset)
	if asset == "" {
		return treasurydomain.Account{}, treasurydomain.ErrInvalidAsset
	}
	if req.Amount <= 0 {
		return treasurydomain.Account{}, treasurydomain.ErrInvalidAmount
	}

	var account treasurydomain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		if err := s.credit(ctx, tx, req.HolderID, asset, req.Amount, now); err != nil {
			return err
		}

		found, err := s.findAccount(ctx, tx, req.HolderID, asset)
		if err != nil {
			return err
		}
		account = *found

		return s.outbox.Record(ctx, tx, eventdomain.TypeTreasuryDeposit, req.HolderID, map[string]any{
			"holder_id": req.HolderID.String(),
			"asset":     asset,
			"amount":    req.Amount,
			"balance":   account.Balance,
		})
	})
	if err != nil {
		return treasurydomain.Account{}, err
	}

	return account, nil
}

// Balance implements domain.Service.
func (s *Service) Balance(ctx context.Context, holderID snowflake.ID, asset string) (int64, error) {
	return s.BalanceTx(ctx, s.db, holderID, asset)
}

// BalanceTx implements domain.Service.
func (s *Service) BalanceTx(ctx context.Context, tx *gorm.DB, holderID snowflake.ID, asset string) (int64, error) {
	if tx == nil {
		tx = s.db
	}

	account, err := s.findAccount(ctx, tx, holderID, strings.TrimSpace(asset))
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}

func (s *Service) credit(ctx context.Context, tx *gorm.DB, holderID snowflake.ID, asset string, amount int64, now time.Time) error {
	account := treasurydomain.Account{
		ID:        s.genID.Generate(),
		HolderID:  holderID,
		Asset:     asset,
		Balance:   amount,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "holder_id"}, {Name: "asset"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": now,
		}),
	}).Create(&account).Error
}

func (s *Service) findAccount(ctx context.Context, tx *gorm.DB, holderID snowflake.ID, asset string) (*treasurydomain.Account, error) {
	var account treasurydomain.Account
	err := tx.WithContext(ctx).
		Where("holder_id = ? AND asset = ?", holderID, asset).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
