package cart

type setQuantityRequest struct {
	Qty *float64 `json:"qty" validate:"required"`
}
