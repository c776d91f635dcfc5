package lottery

import (
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
)

type DrawResponse struct {
	AllocationID string    `json:"allocation_id"`
	PoolID       string    `json:"pool_id"`
	UnitID       string    `json:"unit_id"`
	UnitName     string    `json:"unit_name"`
	NullResult   bool      `json:"null_result"`
	DrawnAt      time.Time `json:"drawn_at"`
}

func (r *DrawResponse) PopulateFromEntities(rec allocation.Record, unit PrizeUnit) {
	r.AllocationID = rec.ID
	r.PoolID = rec.PoolID
	r.UnitID = unit.ID
	r.UnitName = unit.Name
	r.NullResult = unit.NullResult
	r.DrawnAt = rec.CreatedAt
}

type PrizeUnitResponse struct {
	ID                string  `json:"id"`
	PoolID            string  `json:"pool_id"`
	Name              string  `json:"name"`
	Weight            float64 `json:"weight"`
	RemainingQuantity int64   `json:"remaining_quantity"`
	NullResult        bool    `json:"null_result"`
}

type GetAvailableUnitsResponse []PrizeUnitResponse
