package orders

import (
	"context"
	"testing"

	"github.com/angelmondragon/catalogo-presupuesto/internal/cart"
	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/types"
	"github.com/stretchr/testify/require"
)

func validPresupuesto() *types.Presupuesto {
	return &types.Presupuesto{
		CompanyName: "Acme",
		CompanySlug: "acme",
		Items: []types.PresupuestoItem{
			{ID: "a", Name: "Tornillo", Qty: 12, UnitPrice: 8, BaseUnitPrice: 10, Subtotal: 96},
			{ID: "b", Name: "Tuerca", Qty: 2, UnitPrice: 5, BaseUnitPrice: 5, Subtotal: 10},
			{ID: "c", Name: "Arandela", Qty: 100, UnitPrice: 1, BaseUnitPrice: 2, Subtotal: 100},
		},
		Subtotal: 330,
		Discount: 124,
		Total:    206,
	}
}

func TestValidatePresupuestoAcceptsConsistentPayload(t *testing.T) {
	require.NoError(t, ValidatePresupuesto(validPresupuesto()))
}

func TestValidatePresupuestoAcceptsCartPayload(t *testing.T) {
	ctx := context.Background()
	c := cart.New(ctx, []products.Product{
		{ID: "a", Name: "Tornillo", Price: 10.35, PriceX10: 8.1},
		{ID: "b", Name: "Tuerca", Price: 0.3},
	}, nil)
	c.Set(ctx, "a", 13)
	c.Set(ctx, "b", 7)

	payload := c.Payload(companies.Company{Name: "Acme", Slug: "acme"})
	require.NoError(t, ValidatePresupuesto(&payload))
}

func TestValidatePresupuestoToleratesRounding(t *testing.T) {
	p := validPresupuesto()
	p.Total = 206.004
	p.Discount = 123.996
	require.NoError(t, ValidatePresupuesto(p))
}

func TestValidatePresupuestoRejectsInconsistentPayloads(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*types.Presupuesto)
		field  string
	}{
		{name: "nil items", mutate: func(p *types.Presupuesto) { p.Items = nil }, field: "presupuesto.items"},
		{name: "missing slug", mutate: func(p *types.Presupuesto) { p.CompanySlug = "  " }, field: "presupuesto.companySlug"},
		{name: "zero qty", mutate: func(p *types.Presupuesto) { p.Items[1].Qty = 0 }, field: "presupuesto.items[1].qty"},
		{name: "missing id", mutate: func(p *types.Presupuesto) { p.Items[0].ID = "" }, field: "presupuesto.items[0].id"},
		{name: "negative price", mutate: func(p *types.Presupuesto) { p.Items[2].UnitPrice = -1 }, field: "presupuesto.items[2]"},
		{name: "line subtotal", mutate: func(p *types.Presupuesto) { p.Items[0].Subtotal = 120 }, field: "presupuesto.items[0].subtotal"},
		{name: "subtotal", mutate: func(p *types.Presupuesto) { p.Subtotal = 300 }, field: "presupuesto.subtotal"},
		{name: "total", mutate: func(p *types.Presupuesto) { p.Total = 200 }, field: "presupuesto.total"},
		{name: "discount", mutate: func(p *types.Presupuesto) { p.Discount = 0 }, field: "presupuesto.discount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPresupuesto()
			tc.mutate(p)
			err := ValidatePresupuesto(p)
			require.Error(t, err)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPayload))
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			require.True(t, ok)
			require.Contains(t, details, tc.field)
		})
	}
}

func TestValidatePresupuestoRequiresPayload(t *testing.T) {
	err := ValidatePresupuesto(nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPayload))
}
