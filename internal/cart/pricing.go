package cart

import (
	"math"
	"strings"

	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single row so float input cannot overflow an int.
const MaxQuantity = 1_000_000

// Tier thresholds, highest first.
const (
	TierX100 = 100
	TierX50  = 50
	TierX10  = 10
	TierBase = 1
)

// Row is one product line of the cart.
type Row struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	PriceX10  float64 `json:"priceX10"`
	PriceX50  float64 `json:"priceX50"`
	PriceX100 float64 `json:"priceX100"`
	Qty       int     `json:"qty"`
}

// RowFromProduct starts a row for p at quantity zero. A product without a name is
// labeled by its id so the submitted presupuesto always names every line.
func RowFromProduct(p products.Product) Row {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.ID
	}
	return Row{
		ID:        p.ID,
		Name:      name,
		Price:     p.Price,
		PriceX10:  p.PriceX10,
		PriceX50:  p.PriceX50,
		PriceX100: p.PriceX100,
	}
}

// UnitPrice walks the tier ladder from the highest threshold down. A tier priced at zero
// is skipped and the next lower threshold is checked.
func UnitPrice(row Row, qty int) float64 {
	switch TierFor(row, qty) {
	case TierX100:
		return row.PriceX100
	case TierX50:
		return row.PriceX50
	case TierX10:
		return row.PriceX10
	default:
		return row.Price
	}
}

// TierFor returns the threshold whose price applies at qty, or TierBase.
func TierFor(row Row, qty int) int {
	switch {
	case qty >= TierX100 && row.PriceX100 > 0:
		return TierX100
	case qty >= TierX50 && row.PriceX50 > 0:
		return TierX50
	case qty >= TierX10 && row.PriceX10 > 0:
		return TierX10
	default:
		return TierBase
	}
}

// NormalizeQuantity floors v into [0, MaxQuantity]; NaN and infinities become 0.
func NormalizeQuantity(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	v = math.Floor(v)
	if v > MaxQuantity {
		return MaxQuantity
	}
	return int(v)
}

// Totals are computed in decimal; Discount is never negative and Total equals
// Subtotal minus Discount whenever tier prices only lower the line.
type Totals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
	Discount decimal.Decimal
}

// ComputeTotals sums rows at base price (subtotal) and at the applied tier price (total).
func ComputeTotals(rows []Row) Totals {
	subtotal := decimal.Zero
	total := decimal.Zero
	for _, row := range rows {
		if row.Qty <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(row.Qty))
		subtotal = subtotal.Add(decimal.NewFromFloat(row.Price).Mul(qty))
		total = total.Add(decimal.NewFromFloat(UnitPrice(row, row.Qty)).Mul(qty))
	}
	discount := subtotal.Sub(total)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return Totals{Subtotal: subtotal, Total: total, Discount: discount}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
