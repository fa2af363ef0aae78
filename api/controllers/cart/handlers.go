package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/catalogo-presupuesto/api/responses"
	"github.com/angelmondragon/catalogo-presupuesto/api/validators"
	cartsvc "github.com/angelmondragon/catalogo-presupuesto/internal/cart"
	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
)

// SessionHeader carries the shopper's cart session id. A missing or malformed id gets a
// fresh one, echoed back in the same header.
const SessionHeader = "X-Cart-Session"

// CatalogLoader returns the catalog the cart is priced against.
type CatalogLoader interface {
	Current(ctx context.Context) (*catalog.Data, error)
}

// Deps bundles what every cart handler needs.
type Deps struct {
	Catalog  CatalogLoader
	Sessions cartsvc.Sessions
	Logger   *logger.Logger
}

type mutation func(ctx context.Context, c *cartsvc.Cart, r *http.Request) error

// CartFetch returns the session's cart with fresh totals.
func CartFetch(deps Deps) http.HandlerFunc {
	return handle(deps, nil)
}

// CartIncrement adds one unit of the product in the URL.
func CartIncrement(deps Deps) http.HandlerFunc {
	return handle(deps, func(ctx context.Context, c *cartsvc.Cart, r *http.Request) error {
		c.Increment(ctx, chi.URLParam(r, "productId"))
		return nil
	})
}

// CartDecrement removes one unit of the product in the URL.
func CartDecrement(deps Deps) http.HandlerFunc {
	return handle(deps, func(ctx context.Context, c *cartsvc.Cart, r *http.Request) error {
		c.Decrement(ctx, chi.URLParam(r, "productId"))
		return nil
	})
}

// CartSetQuantity overwrites the quantity of the product in the URL.
func CartSetQuantity(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, err)
			return
		}
		handle(deps, func(ctx context.Context, c *cartsvc.Cart, r *http.Request) error {
			c.Set(ctx, chi.URLParam(r, "productId"), *payload.Qty)
			return nil
		})(w, r)
	}
}

// CartClear zeroes every row.
func CartClear(deps Deps) http.HandlerFunc {
	return handle(deps, func(ctx context.Context, c *cartsvc.Cart, _ *http.Request) error {
		c.Clear(ctx)
		return nil
	})
}

func handle(deps Deps, mutate mutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Catalog == nil || deps.Sessions == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		data, err := deps.Catalog.Current(ctx)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		sessionID := sessionFromRequest(r)
		w.Header().Set(SessionHeader, sessionID)

		opts := []cartsvc.Option{}
		if deps.Logger != nil {
			opts = append(opts, cartsvc.WithLogger(deps.Logger))
		}
		storage := deps.Sessions.For(data.Company.Slug + ":" + sessionID)
		c := cartsvc.New(ctx, data.Products, storage, opts...)

		if mutate != nil {
			if err := mutate(ctx, c, r); err != nil {
				responses.WriteError(ctx, deps.Logger, w, err)
				return
			}
		}

		responses.WriteSuccess(w, newCartView(c, data))
	}
}

func sessionFromRequest(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id, err := uuid.Parse(raw); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
