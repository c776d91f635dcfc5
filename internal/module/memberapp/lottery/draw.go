package lottery

import (
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
)

// chooseUnit performs inverse-CDF weighted selection over the available
// units. drawValue must be uniform in [0, 1); it is scaled by the total
// weight so the selection probability of each unit is weight/totalWeight.
func chooseUnit(units []PrizeUnit, drawValue float64) (PrizeUnit, error) {
	var totalWeight float64
	for _, unit := range units {
		if unit.Weight > 0 {
			totalWeight += unit.Weight
		}
	}

	if totalWeight <= 0 {
		return PrizeUnit{}, errors.New(http.StatusInternalServerError, status.INVALID_INVENTORY, "prize pool carries no drawable weight")
	}

	target := drawValue * totalWeight

	var cumulative float64
	for _, unit := range units {
		if unit.Weight <= 0 {
			continue
		}
		cumulative += unit.Weight
		if target < cumulative {
			return unit, nil
		}
	}

	// Only reachable through floating point rounding at the upper edge.
	for i := len(units) - 1; i >= 0; i-- {
		if units[i].Weight > 0 {
			return units[i], nil
		}
	}

	return PrizeUnit{}, errors.New(http.StatusInternalServerError, status.INVALID_INVENTORY, "prize pool carries no drawable weight")
}
