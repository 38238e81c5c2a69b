// Package authz implements the administrator capability consulted by every
// administration-only registry operation.
package authz

import (
	_ "embed"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectRegistry = "registry"
	ObjectTreasury = "treasury"

	RoleAdministrator = "role:administrator"
)

var (
	ErrNotAuthorized = errors.New("not_authorized")
	ErrInvalidActor  = errors.New("invalid_actor")
)

type Service interface {
	// IsAdministrator reports whether the actor holds the administrator role.
	IsAdministrator(ctx context.Context, actor snowflake.ID) (bool, error)
	// RequireAdministrator returns ErrNotAuthorized for non-administrators.
	RequireAdministrator(ctx context.Context, actor snowflake.ID) error
	// GrantAdministrator assigns the administrator role to an actor.
	GrantAdministrator(ctx context.Context, actor snowflake.ID) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleAdministrator, ObjectRegistry, "*"},
		{RoleAdministrator, ObjectTreasury, "*"},
	}
	for _, p := range policies {
		has, err := enforcer.HasPolicy(p[0], p[1], p[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	return nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authz.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) IsAdministrator(ctx context.Context, actor snowflake.ID) (bool, error) {
	if actor == 0 {
		return false, ErrInvalidActor
	}
	return s.enforcer.Enforce(subject(actor), ObjectRegistry, "administer")
}

func (s *ServiceImpl) RequireAdministrator(ctx context.Context, actor snowflake.ID) error {
	ok, err := s.IsAdministrator(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (s *ServiceImpl) GrantAdministrator(ctx context.Context, actor snowflake.ID) error {
	if actor == 0 {
		return ErrInvalidActor
	}
	has, err := s.enforcer.HasGroupingPolicy(subject(actor), RoleAdministrator)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject(actor), RoleAdministrator)
	return err
}

func subject(actor snowflake.ID) string {
	return fmt.Sprintf("actor:%s", actor.String())
}
