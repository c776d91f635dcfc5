package cancellation

import "time"

type CancelResponse struct {
	AllocationID     string    `json:"allocation_id"`
	RefundPercentage int64     `json:"refund_percentage"`
	RefundAmount     float64   `json:"refund_amount"`
	CancelledAt      time.Time `json:"cancelled_at"`
}
