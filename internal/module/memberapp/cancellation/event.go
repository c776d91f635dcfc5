package cancellation

import "time"

// AllocationCancelledEvent notifies the messaging channel of a finished
// cancellation. Delivery is fire-and-forget.
type AllocationCancelledEvent struct {
	AllocationID     string    `json:"allocation_id"`
	PoolID           string    `json:"pool_id"`
	PoolTitle        string    `json:"pool_title"`
	MemberID         int64     `json:"member_id"`
	MemberEmail      string    `json:"member_email"`
	RefundPercentage int64     `json:"refund_percentage"`
	RefundAmount     float64   `json:"refund_amount"`
	RefundOrderID    string    `json:"refund_order_id,omitempty"`
	CancelledAt      time.Time `json:"cancelled_at"`
}
