package lottery

// PrizeUnit is one inventory line inside a lottery pool. A null-result unit
// is a "miss" outcome: it can be drawn but never consumes inventory.
type PrizeUnit struct {
	ID                string
	PoolID            string
	Name              string
	Weight            float64
	RemainingQuantity int64
	NullResult        bool
}
