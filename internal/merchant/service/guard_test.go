package service

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
)

func TestReentryGuardBlocksHeldID(t *testing.T) {
	guard := newReentryGuard()
	id := snowflake.ID(42)

	require.NoError(t, guard.acquire(id))
	assert.ErrorIs(t, guard.acquire(id), merchantdomain.ErrReentrancyBlocked)

	// A different instance is unaffected.
	other := snowflake.ID(43)
	require.NoError(t, guard.acquire(other))
	guard.release(other)

	guard.release(id)
	assert.NoError(t, guard.acquire(id))
	guard.release(id)
}
