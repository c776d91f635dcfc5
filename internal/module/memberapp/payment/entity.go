package payment

import "time"

const (
	TypePurchase string = "PURCHASE"
	TypeRefund   string = "REFUND"
)

const (
	StatusPending   string = "PENDING"
	StatusRejected  string = "REJECTED"
	StatusFulfilled string = "FULFILLED"
)

// Record is one payment fact for a (member, pool) pair. Purchases are written
// by the payment notification flow (out of scope here); the allocation engine
// reads them as a gate and writes refund records on cancellation.
type Record struct {
	OrderID      string
	MemberID     int64
	PoolID       string
	AllocationID *string
	Amount       float64
	Type         string
	Status       string
	CreatedAt    time.Time
}
