package cancellation

import (
	"testing"
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
	"github.com/stretchr/testify/assert"
)

func TestResolveRefundPercentage(t *testing.T) {
	tiers := []pool.CancellationPolicyTier{
		{Day: 1, RefundPercentage: 0},
		{Day: 7, RefundPercentage: 100},
		{Day: 3, RefundPercentage: 50},
	}

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("the earliest open tier wins", func(t *testing.T) {
		poolStart := now.Add(5 * 24 * time.Hour)

		pct, open := resolveRefundPercentage(tiers, poolStart, now)
		assert.True(t, open)
		assert.Equal(t, int64(50), pct)
	})

	t.Run("an early cancellation lands on the most generous tier", func(t *testing.T) {
		poolStart := now.Add(10 * 24 * time.Hour)

		pct, open := resolveRefundPercentage(tiers, poolStart, now)
		assert.True(t, open)
		assert.Equal(t, int64(100), pct)
	})

	t.Run("a late cancellation falls through to the zero tier", func(t *testing.T) {
		poolStart := now.Add(36 * time.Hour)

		pct, open := resolveRefundPercentage(tiers, poolStart, now)
		assert.True(t, open)
		assert.Equal(t, int64(0), pct)
	})

	t.Run("no tier is open once every due date has passed", func(t *testing.T) {
		poolStart := now.Add(12 * time.Hour)

		_, open := resolveRefundPercentage(tiers, poolStart, now)
		assert.False(t, open)
	})

	t.Run("hour and minute offsets shift the due date", func(t *testing.T) {
		fine := []pool.CancellationPolicyTier{
			{Hour: 2, Minute: 30, RefundPercentage: 75},
		}

		pct, open := resolveRefundPercentage(fine, now.Add(3*time.Hour), now)
		assert.True(t, open)
		assert.Equal(t, int64(75), pct)

		_, open = resolveRefundPercentage(fine, now.Add(2*time.Hour), now)
		assert.False(t, open)
	})

	t.Run("an empty schedule never opens", func(t *testing.T) {
		_, open := resolveRefundPercentage(nil, now.Add(24*time.Hour), now)
		assert.False(t, open)
	})
}
