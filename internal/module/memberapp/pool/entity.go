package pool

import "time"

const (
	KindLottery    string = "LOTTERY"
	KindOccurrence string = "OCCURRENCE"
)

const (
	ParentKindProgram  string = "PROGRAM"
	ParentKindCategory string = "CATEGORY"
)

// Pool is a finite-capacity resource members compete for: a timed lottery
// campaign or a bookable event occurrence. The catalog side owns these rows;
// the allocation engine only reads them.
type Pool struct {
	ID                  string
	Kind                string
	Title               string
	ParentKind          string
	ParentID            string
	StartAt             time.Time
	EndAt               time.Time
	RegistrationOpenAt  *time.Time
	RegistrationCloseAt *time.Time
	// TotalCapacity only applies to occurrence pools; lottery capacity lives
	// on the prize units.
	TotalCapacity         int64
	Fee                   float64
	DateScoped            bool
	AllowsOverlap         bool
	NotRegisterSameTime   bool
	AllowsCancellation    bool
	DeadlineOffsetMinutes *int64
}

// CancellationPolicyTier is one row of a pool's refund schedule. The offset
// counts backward from the pool's scheduled start.
type CancellationPolicyTier struct {
	PoolID           string
	Day              int64
	Hour             int64
	Minute           int64
	RefundPercentage int64
}

// DueDate resolves the tier's deadline against the pool's start time.
func (t CancellationPolicyTier) DueDate(poolStart time.Time) time.Time {
	return poolStart.
		AddDate(0, 0, -int(t.Day)).
		Add(-time.Duration(t.Hour) * time.Hour).
		Add(-time.Duration(t.Minute) * time.Minute)
}
