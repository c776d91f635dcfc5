package lottery

import "time"

// LotteryDrawnEvent notifies the messaging channel of a draw outcome.
// Delivery is fire-and-forget.
type LotteryDrawnEvent struct {
	AllocationID string    `json:"allocation_id"`
	PoolID       string    `json:"pool_id"`
	UnitID       string    `json:"unit_id"`
	UnitName     string    `json:"unit_name"`
	NullResult   bool      `json:"null_result"`
	MemberID     int64     `json:"member_id"`
	MemberEmail  string    `json:"member_email"`
	DrawnAt      time.Time `json:"drawn_at"`
}
