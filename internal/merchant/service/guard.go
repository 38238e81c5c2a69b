package service

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
)

// reentryGuard scopes mutual exclusion to one service instance: a guarded
// operation that calls out (treasury legs, fee oracle) must not be re-entered
// on the same instance, while distinct instances never contend.
type reentryGuard struct {
	mu   sync.Mutex
	held map[snowflake.ID]struct{}
}

func newReentryGuard() *reentryGuard {
	return &reentryGuard{held: make(map[snowflake.ID]struct{})}
}

func (g *reentryGuard) acquire(id snowflake.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[id]; ok {
		return merchantdomain.ErrReentrancyBlocked
	}
	g.held[id] = struct{}{}
	return nil
}

func (g *reentryGuard) release(id snowflake.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, id)
}
