package cancellation

import (
	"sort"
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
)

// resolveRefundPercentage picks the applicable refund tier at the moment of
// cancellation. Tiers are ordered by due date ascending and the earliest tier
// whose due date has not passed wins, so a late cancellation naturally falls
// through to the stingier tiers. The second return reports whether any tier
// was still open.
func resolveRefundPercentage(tiers []pool.CancellationPolicyTier, poolStart, now time.Time) (int64, bool) {
	sorted := make([]pool.CancellationPolicyTier, len(tiers))
	copy(sorted, tiers)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate(poolStart).Before(sorted[j].DueDate(poolStart))
	})

	for _, tier := range sorted {
		if now.Before(tier.DueDate(poolStart)) {
			return tier.RefundPercentage, true
		}
	}

	return 0, false
}
