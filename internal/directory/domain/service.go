package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Register(ctx context.Context, tx *gorm.DB, record ServiceRecord) error
	Exists(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (bool, error)
	Find(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (*ServiceRecord, error)
	ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]ServiceRecord, error)
}

var (
	ErrAlreadyRegistered = errors.New("service_already_registered")
	// ErrUnknownService marks an operation referencing an id never
	// registered in the directory.
	ErrUnknownService = errors.New("unknown_service")
)
