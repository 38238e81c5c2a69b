package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertInstance(ctx context.Context, db *gorm.DB, instance *ServiceInstance) error
	FindInstance(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ServiceInstance, error)
	UpdateInstance(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
	FindEntitlement(ctx context.Context, db *gorm.DB, serviceID, subscriberID snowflake.ID) (*Entitlement, error)
	UpsertEntitlement(ctx context.Context, db *gorm.DB, entitlement *Entitlement) error
}
