package booking

type ReserveRequest struct {
	PoolID   string `json:"pool_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"omitempty,min=1"`
}

// OverrideReserveRequest is the back-office variant. The acting admin books
// on behalf of the named member.
type OverrideReserveRequest struct {
	PoolID      string `json:"pool_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"omitempty,min=1"`
	MemberID    int64  `json:"member_id" validate:"required"`
	MemberName  string `json:"member_name" validate:"required"`
	MemberEmail string `json:"member_email" validate:"required,email"`
}

type GetActiveAllocationsRequest struct {
	PoolID string `json:"pool_id" validate:"omitempty"`
}

type GetManyAllocationRequest struct {
	Page int64 `json:"page" validate:"required,min=1"`
	Size int64 `json:"size" validate:"required,min=1,max=100"`
}
