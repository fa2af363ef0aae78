package cart

import (
	cartsvc "github.com/angelmondragon/catalogo-presupuesto/internal/cart"
	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/types"
)

type cartRow struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unitPrice"`
	BasePrice float64 `json:"basePrice"`
	Tier      int     `json:"tier"`
}

type cartView struct {
	Items       []cartRow         `json:"items"`
	Subtotal    float64           `json:"subtotal"`
	Discount    float64           `json:"discount"`
	Total       float64           `json:"total"`
	Presupuesto types.Presupuesto `json:"presupuesto"`
}

func newCartView(c *cartsvc.Cart, data *catalog.Data) cartView {
	payload := c.Payload(data.Company)
	rows := make([]cartRow, 0, len(payload.Items))
	for _, row := range c.Rows() {
		if row.Qty <= 0 {
			continue
		}
		rows = append(rows, cartRow{
			ID:        row.ID,
			Name:      row.Name,
			Qty:       row.Qty,
			UnitPrice: cartsvc.UnitPrice(row, row.Qty),
			BasePrice: row.Price,
			Tier:      cartsvc.TierFor(row, row.Qty),
		})
	}
	return cartView{
		Items:       rows,
		Subtotal:    payload.Subtotal,
		Discount:    payload.Discount,
		Total:       payload.Total,
		Presupuesto: payload,
	}
}
