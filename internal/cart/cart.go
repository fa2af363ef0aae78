package cart

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/types"
)

// SchemaVersion is the persisted state version this code reads and writes. Bumping it
// discards every stored cart on next load.
const SchemaVersion = 2

// Storage keys.
const (
	VersionKey    = "presupuesto:version"
	QuantitiesKey = "presupuesto:quantities"
)

// Cart holds one row per catalog product. Rows are never removed, only zeroed. A Cart is
// not safe for concurrent use.
type Cart struct {
	rows     []Row
	index    map[string]int
	storage  Storage
	version  int
	logg     *logger.Logger
	onChange func(Totals)
	totals   Totals
}

// Option configures optional cart behavior.
type Option func(*Cart)

// WithVersion overrides the expected schema version.
func WithVersion(v int) Option {
	return func(c *Cart) {
		c.version = v
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Cart) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithOnChange registers a hook that receives fresh totals after load and every mutation.
func WithOnChange(fn func(Totals)) Option {
	return func(c *Cart) {
		c.onChange = fn
	}
}

// New builds a cart for items and rehydrates persisted quantities. Storage may be nil, in
// which case the cart lives only in memory.
func New(ctx context.Context, items []products.Product, storage Storage, opts ...Option) *Cart {
	c := &Cart{
		rows:    make([]Row, 0, len(items)),
		index:   make(map[string]int, len(items)),
		storage: storage,
		version: SchemaVersion,
		logg:    logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	for _, p := range items {
		if _, dup := c.index[p.ID]; dup || p.ID == "" {
			continue
		}
		c.index[p.ID] = len(c.rows)
		c.rows = append(c.rows, RowFromProduct(p))
	}

	c.load(ctx)
	c.recompute()
	return c
}

// Increment adds one unit of id.
func (c *Cart) Increment(ctx context.Context, id string) {
	if i, ok := c.index[id]; ok {
		c.update(ctx, i, float64(c.rows[i].Qty)+1)
	}
}

// Decrement removes one unit of id, stopping at zero.
func (c *Cart) Decrement(ctx context.Context, id string) {
	if i, ok := c.index[id]; ok {
		c.update(ctx, i, float64(c.rows[i].Qty)-1)
	}
}

// Set replaces the quantity of id. Negative, fractional and non-finite input is normalized.
func (c *Cart) Set(ctx context.Context, id string, qty float64) {
	if i, ok := c.index[id]; ok {
		c.update(ctx, i, qty)
	}
}

// Clear zeroes every row.
func (c *Cart) Clear(ctx context.Context) {
	for i := range c.rows {
		c.rows[i].Qty = 0
	}
	c.recompute()
	c.persist(ctx)
}

func (c *Cart) update(ctx context.Context, i int, qty float64) {
	c.rows[i].Qty = NormalizeQuantity(qty)
	c.recompute()
	c.persist(ctx)
}

// Rows returns a copy of every row in catalog order.
func (c *Cart) Rows() []Row {
	out := make([]Row, len(c.rows))
	copy(out, c.rows)
	return out
}

// Quantity returns the current quantity of id, zero when unknown.
func (c *Cart) Quantity(id string) int {
	if i, ok := c.index[id]; ok {
		return c.rows[i].Qty
	}
	return 0
}

func (c *Cart) Totals() Totals {
	return c.totals
}

// Payload builds the submission for company from rows with a positive quantity.
func (c *Cart) Payload(company companies.Company) types.Presupuesto {
	payload := types.Presupuesto{
		CompanyName: company.Name,
		CompanySlug: company.Slug,
		Items:       []types.PresupuestoItem{},
		Subtotal:    toFloat(c.totals.Subtotal),
		Discount:    toFloat(c.totals.Discount),
		Total:       toFloat(c.totals.Total),
	}
	for _, row := range c.rows {
		if row.Qty <= 0 {
			continue
		}
		unit := UnitPrice(row, row.Qty)
		line := ComputeTotals([]Row{row})
		payload.Items = append(payload.Items, types.PresupuestoItem{
			ID:            row.ID,
			Name:          row.Name,
			Qty:           row.Qty,
			UnitPrice:     unit,
			BaseUnitPrice: row.Price,
			Subtotal:      toFloat(line.Total),
		})
	}
	return payload
}

func (c *Cart) recompute() {
	c.totals = ComputeTotals(c.rows)
	if c.onChange != nil {
		c.onChange(c.totals)
	}
}

// load applies persisted quantities. A missing or different version marker wipes the
// stored quantities and rewrites the marker; nothing is carried across versions.
func (c *Cart) load(ctx context.Context) {
	if c.storage == nil {
		return
	}
	stored, ok, err := c.storage.Get(ctx, VersionKey)
	if err != nil {
		c.storageFailed(ctx, "read cart version", err)
		return
	}
	if !ok || strings.TrimSpace(stored) != strconv.Itoa(c.version) {
		if err := c.storage.Delete(ctx, QuantitiesKey); err != nil {
			c.storageFailed(ctx, "clear cart quantities", err)
		}
		if err := c.storage.Set(ctx, VersionKey, strconv.Itoa(c.version)); err != nil {
			c.storageFailed(ctx, "write cart version", err)
		}
		return
	}

	raw, ok, err := c.storage.Get(ctx, QuantitiesKey)
	if err != nil {
		c.storageFailed(ctx, "read cart quantities", err)
		return
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	var quantities map[string]float64
	if err := json.Unmarshal([]byte(raw), &quantities); err != nil {
		c.storageFailed(ctx, "decode cart quantities", err)
		return
	}
	for id, qty := range quantities {
		if i, ok := c.index[id]; ok {
			c.rows[i].Qty = NormalizeQuantity(qty)
		}
	}
}

func (c *Cart) persist(ctx context.Context) {
	if c.storage == nil {
		return
	}
	quantities := make(map[string]int, len(c.rows))
	for _, row := range c.rows {
		if row.Qty > 0 {
			quantities[row.ID] = row.Qty
		}
	}
	payload, err := json.Marshal(quantities)
	if err != nil {
		c.storageFailed(ctx, "encode cart quantities", err)
		return
	}
	if err := c.storage.Set(ctx, QuantitiesKey, string(payload)); err != nil {
		c.storageFailed(ctx, "write cart quantities", err)
	}
}

func (c *Cart) storageFailed(ctx context.Context, op string, err error) {
	c.logg.WarnErr(ctx, "cart storage failure", pkgerrors.Wrap(pkgerrors.CodeStorage, err, op))
}
