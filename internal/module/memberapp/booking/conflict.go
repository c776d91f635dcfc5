package booking

import (
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
)

// timeRange is the comparable span of a pool. Date-scoped pools compare on
// whole days; everything else compares on precise instants.
type timeRange struct {
	start time.Time
	end   time.Time
}

func rangeOf(p pool.Pool) timeRange {
	if p.DateScoped {
		start := time.Date(p.StartAt.Year(), p.StartAt.Month(), p.StartAt.Day(), 0, 0, 0, 0, p.StartAt.Location())
		end := time.Date(p.EndAt.Year(), p.EndAt.Month(), p.EndAt.Day(), 23, 59, 59, 0, p.EndAt.Location())
		return timeRange{start: start, end: end}
	}

	return timeRange{start: p.StartAt, end: p.EndAt}
}

// resolveRange resolves a pool's span through its parent kind. Program
// sessions and category offerings denormalize the parent's schedule onto the
// pool row, so both kinds share one interval rule; anything else in the
// catalog is not a bookable offering and carries no comparable span.
func resolveRange(p pool.Pool) (timeRange, bool) {
	switch p.ParentKind {
	case pool.ParentKindProgram, pool.ParentKindCategory:
		return rangeOf(p), true
	default:
		return timeRange{}, false
	}
}

// intersects treats boundary equality and one-sided containment as overlap.
func (a timeRange) intersects(b timeRange) bool {
	return !a.start.After(b.end) && !b.start.After(a.end)
}

// overlapPermitted reports whether two booking-style pools may share time.
// Both sides must be marked multi-event; for a pair of date-scoped pools,
// either side's same-time prohibition re-arms the conflict.
func overlapPermitted(candidate, existing pool.Pool) bool {
	if !candidate.AllowsOverlap || !existing.AllowsOverlap {
		return false
	}

	if candidate.DateScoped && existing.DateScoped {
		if candidate.NotRegisterSameTime || existing.NotRegisterSameTime {
			return false
		}
	}

	return true
}

// HasConflict checks the candidate pool against the member's active
// allocations. Lottery records never participate. Program-parented and
// category-parented pools resolve through the same interval rule, so the
// check is symmetric across the two parent kinds.
func HasConflict(candidate pool.Pool, existing []allocation.ActiveRecord) bool {
	candidateRange, ok := resolveRange(candidate)
	if !ok {
		return false
	}

	for _, rec := range existing {
		other := rec.Pool

		if other.Kind != pool.KindOccurrence {
			continue
		}

		otherRange, ok := resolveRange(other)
		if !ok {
			continue
		}

		if overlapPermitted(candidate, other) {
			continue
		}

		if candidateRange.intersects(otherRange) {
			return true
		}
	}

	return false
}
