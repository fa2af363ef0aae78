package orders

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/types"
	"github.com/shopspring/decimal"
)

// Tolerance is the largest rounding difference accepted between submitted and
// recomputed amounts.
var Tolerance = decimal.NewFromFloat(0.01)

// ValidatePresupuesto checks that the submitted amounts agree with the items: each line
// subtotal is qty times unit price, the subtotal sums base prices, the total sums line
// subtotals, and the discount is max(0, subtotal - total).
func ValidatePresupuesto(p *types.Presupuesto) error {
	if p == nil {
		return invalid("presupuesto", "is required")
	}
	if strings.TrimSpace(p.CompanySlug) == "" {
		return invalid("presupuesto.companySlug", "is required")
	}
	if len(p.Items) == 0 {
		return invalid("presupuesto.items", "must contain at least one item")
	}

	subtotal := decimal.Zero
	total := decimal.Zero
	for i, item := range p.Items {
		field := fmt.Sprintf("presupuesto.items[%d]", i)
		if strings.TrimSpace(item.ID) == "" {
			return invalid(field+".id", "is required")
		}
		if item.Qty < 1 {
			return invalid(field+".qty", "must be at least 1")
		}
		if item.UnitPrice < 0 || item.BaseUnitPrice < 0 || item.Subtotal < 0 {
			return invalid(field, "prices must not be negative")
		}
		qty := decimal.NewFromInt(int64(item.Qty))
		line := decimal.NewFromFloat(item.UnitPrice).Mul(qty)
		if !within(line, decimal.NewFromFloat(item.Subtotal)) {
			return invalid(field+".subtotal", "does not match qty * unitPrice")
		}
		subtotal = subtotal.Add(decimal.NewFromFloat(item.BaseUnitPrice).Mul(qty))
		total = total.Add(line)
	}

	if !within(subtotal, decimal.NewFromFloat(p.Subtotal)) {
		return invalid("presupuesto.subtotal", "does not match the items")
	}
	if !within(total, decimal.NewFromFloat(p.Total)) {
		return invalid("presupuesto.total", "does not match the items")
	}
	discount := subtotal.Sub(total)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if !within(discount, decimal.NewFromFloat(p.Discount)) {
		return invalid("presupuesto.discount", "must equal max(0, subtotal - total)")
	}
	return nil
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

func invalid(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidPayload, field+" "+msg).
		WithDetails(map[string]string{field: msg})
}
