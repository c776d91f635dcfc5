package booking

import "time"

// AllocationCreatedEvent notifies the messaging channel of a confirmed
// booking. Delivery is fire-and-forget.
type AllocationCreatedEvent struct {
	AllocationID string    `json:"allocation_id"`
	PoolID       string    `json:"pool_id"`
	PoolTitle    string    `json:"pool_title"`
	MemberID     int64     `json:"member_id"`
	MemberEmail  string    `json:"member_email"`
	Quantity     int64     `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
}
