package lottery

type DrawRequest struct {
	PoolID string `json:"pool_id" validate:"required"`
}

type GetAvailableUnitsRequest struct {
	PoolID string `validate:"required"`
}
