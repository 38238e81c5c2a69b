package repository

import (
	"context"

	"github.com/subgridhq/subgrid/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic gorm store for simple catalog-style models.
// Hot paths keep hand-written repositories.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
