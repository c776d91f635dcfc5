package allocation

import (
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
)

// Record is the ledger entry binding one member to one pool, and for lottery
// draws to one prize unit. A record is active until CancelledAt is set; that
// transition is terminal.
type Record struct {
	ID             string
	PoolID         string
	UnitID         *string
	MemberID       int64
	MemberName     string
	MemberEmail    string
	Quantity       int64
	PaymentOrderID *string
	Attended       bool
	CreatedAt      time.Time
	CancelledAt    *time.Time
}

// ActiveRecord is a ledger entry joined with its pool metadata, as needed by
// the conflict checker and the member's active-allocation listing.
type ActiveRecord struct {
	Record
	Pool pool.Pool
}
