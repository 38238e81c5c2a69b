package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type TransferRequest struct {
	Asset      string
	FromID     snowflake.ID
	ToID       snowflake.ID
	Amount     int64
	SourceType TransferSourceType
	// SourceID ties the posting back to the operation that caused it.
	SourceID snowflake.ID
}

type DepositRequest struct {
	Actor    snowflake.ID
	HolderID snowflake.ID
	Asset    string
	Amount   int64
}

type Service interface {
	// Transfer moves the exact amount or fails without effect. It must run
	// inside the caller's transaction so the caller's whole operation aborts
	// with it.
	Transfer(ctx context.Context, tx *gorm.DB, req TransferRequest) error
	// Deposit credits a holder from outside the system. Administrator-only.
	Deposit(ctx context.Context, req DepositRequest) (Account, error)
	Balance(ctx context.Context, holderID snowflake.ID, asset string) (int64, error)
	BalanceTx(ctx context.Context, tx *gorm.DB, holderID snowflake.ID, asset string) (int64, error)
}

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidAsset      = errors.New("invalid_asset")
	ErrSameAccount       = errors.New("same_account")
	ErrInsufficientFunds = errors.New("insufficient_funds")
)
