package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() merchantdomain.Repository {
	return &repo{}
}

func (r *repo) InsertInstance(ctx context.Context, db *gorm.DB, instance *merchantdomain.ServiceInstance) error {
	return db.WithContext(ctx).Create(instance).Error
}

func (r *repo) FindInstance(ctx context.Context, db *gorm.DB, id snowflake.ID) (*merchantdomain.ServiceInstance, error) {
	var instance merchantdomain.ServiceInstance
	err := db.WithContext(ctx).Where("id = ?", id).First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

func (r *repo) UpdateInstance(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&merchantdomain.ServiceInstance{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) FindEntitlement(ctx context.Context, db *gorm.DB, serviceID, subscriberID snowflake.ID) (*merchantdomain.Entitlement, error) {
	var entitlement merchantdomain.Entitlement
	err := db.WithContext(ctx).
		Where("service_id = ? AND subscriber_id = ?", serviceID, subscriberID).
		First(&entitlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entitlement, nil
}

func (r *repo) UpsertEntitlement(ctx context.Context, db *gorm.DB, entitlement *merchantdomain.Entitlement) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_id"}, {Name: "subscriber_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"expires_at", "updated_at",
		}),
	}).Create(entitlement).Error
}
