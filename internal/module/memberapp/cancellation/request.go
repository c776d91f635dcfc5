package cancellation

type CancelRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
	Reason       string `json:"reason" validate:"omitempty,max=255"`
}

// OverrideCancelRequest is the back-office variant. Ownership is not checked
// and a closed refund schedule resolves to a full refund.
type OverrideCancelRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=255"`
}

// RefundRetryRequest is the task-queue callback payload for a refund the
// provider rejected earlier.
type RefundRetryRequest struct {
	RefundOrderID   string  `json:"refund_order_id" validate:"required"`
	PurchaseOrderID string  `json:"purchase_order_id" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Reason          string  `json:"reason" validate:"omitempty,max=255"`
	Attempt         int64   `json:"attempt" validate:"required,min=1"`
}
