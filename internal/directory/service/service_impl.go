package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	"github.com/subgridhq/subgrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) directorydomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("directory.service"),
	}
}

// Register implements domain.Service. Membership is write-once: a second
// insert for the same id fails rather than overwriting ownership.
func (s *Service) Register(ctx context.Context, tx *gorm.DB, record directorydomain.ServiceRecord) error {
	if tx == nil {
		tx = s.db
	}

	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return directorydomain.ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

// Exists implements domain.Service.
func (s *Service) Exists(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (bool, error) {
	record, err := s.Find(ctx, tx, serviceID)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Find implements domain.Service.
func (s *Service) Find(ctx context.Context, tx *gorm.DB, serviceID snowflake.ID) (*directorydomain.ServiceRecord, error) {
	if tx == nil {
		tx = s.db
	}

	var record directorydomain.ServiceRecord
	err := tx.WithContext(ctx).Where("service_id = ?", serviceID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByOwner implements domain.Service.
func (s *Service) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]directorydomain.ServiceRecord, error) {
	var records []directorydomain.ServiceRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("service_id ASC").
		Find(&records).Error
	return records, err
}
