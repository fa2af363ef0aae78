package types

// Presupuesto is the quote a shopper submits. Money travels as float64 on the wire and is
// recomputed with decimal arithmetic wherever it is checked.
type Presupuesto struct {
	CompanyName string            `json:"companyName" validate:"omitempty,max=200"`
	CompanySlug string            `json:"companySlug" validate:"required,max=120"`
	Items       []PresupuestoItem `json:"items" validate:"required,min=1,max=500,dive"`
	Subtotal    float64           `json:"subtotal" validate:"gte=0"`
	Discount    float64           `json:"discount" validate:"gte=0"`
	Total       float64           `json:"total" validate:"gte=0"`
}

type PresupuestoItem struct {
	ID            string  `json:"id" validate:"required,max=120"`
	Name          string  `json:"name" validate:"required,max=300"`
	Qty           int     `json:"qty" validate:"gte=1"`
	UnitPrice     float64 `json:"unitPrice" validate:"gte=0"`
	BaseUnitPrice float64 `json:"baseUnitPrice" validate:"gte=0"`
	Subtotal      float64 `json:"subtotal" validate:"gte=0"`
}
