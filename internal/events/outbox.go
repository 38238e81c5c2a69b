package events

import (
	"context"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/subgridhq/subgrid/internal/clock"
	eventdomain "github.com/subgridhq/subgrid/internal/events/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

// Outbox records mutation events inside the caller's transaction.
type Outbox struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(p Params) *Outbox {
	return &Outbox{
		db:    p.DB,
		log:   p.Log.Named("events.outbox"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Record inserts one event row using the supplied transaction handle so the
// event commits or rolls back together with the mutation it describes.
func (o *Outbox) Record(ctx context.Context, tx *gorm.DB, eventType string, subjectID snowflake.ID, payload map[string]any) error {
	if tx == nil {
		tx = o.db
	}

	now := o.clock.Now()
	dedupe := ulid.Make().String()

	event := eventdomain.Event{
		ID:        o.genID.Generate(),
		EventType: eventType,
		SubjectID: subjectID,
		Payload:   datatypes.JSONMap(payload),
		DedupeKey: &dedupe,
		CreatedAt: now,
	}

	return tx.WithContext(ctx).Create(&event).Error
}

// List returns recent events, newest first, optionally filtered by type.
func (o *Outbox) List(ctx context.Context, eventType string, limit int) ([]eventdomain.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	stmt := o.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if eventType != "" {
		stmt = stmt.Where("event_type = ?", eventType)
	}

	var out []eventdomain.Event
	err := stmt.Find(&out).Error
	return out, err
}
