package booking

import (
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
)

type ReserveResponse struct {
	AllocationID string    `json:"allocation_id"`
	PoolID       string    `json:"pool_id"`
	PoolTitle    string    `json:"pool_title"`
	Quantity     int64     `json:"quantity"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *ReserveResponse) PopulateFromEntities(rec allocation.Record, p pool.Pool) {
	r.AllocationID = rec.ID
	r.PoolID = p.ID
	r.PoolTitle = p.Title
	r.Quantity = rec.Quantity
	r.StartAt = p.StartAt
	r.EndAt = p.EndAt
	r.CreatedAt = rec.CreatedAt
}

type ActiveAllocationResponse struct {
	AllocationID string    `json:"allocation_id"`
	PoolID       string    `json:"pool_id"`
	PoolTitle    string    `json:"pool_title"`
	PoolKind     string    `json:"pool_kind"`
	Quantity     int64     `json:"quantity"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *ActiveAllocationResponse) PopulateFromEntity(rec allocation.ActiveRecord) {
	r.AllocationID = rec.ID
	r.PoolID = rec.Pool.ID
	r.PoolTitle = rec.Pool.Title
	r.PoolKind = rec.Pool.Kind
	r.Quantity = rec.Quantity
	r.StartAt = rec.Pool.StartAt
	r.EndAt = rec.Pool.EndAt
	r.CreatedAt = rec.CreatedAt
}

type GetActiveAllocationsResponse []ActiveAllocationResponse

type AllocationResponse struct {
	AllocationID string     `json:"allocation_id"`
	PoolID       string     `json:"pool_id"`
	Quantity     int64      `json:"quantity"`
	Attended     bool       `json:"attended"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at"`
}

func (r *AllocationResponse) PopulateFromEntity(rec allocation.Record) {
	r.AllocationID = rec.ID
	r.PoolID = rec.PoolID
	r.Quantity = rec.Quantity
	r.Attended = rec.Attended
	r.CreatedAt = rec.CreatedAt
	r.CancelledAt = rec.CancelledAt
}

type GetManyAllocationResponse []AllocationResponse
