package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/api/responses"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/security"
)

// CatalogInvalidator drops cached state for the configured company.
type CatalogInvalidator interface {
	CurrentSlug() string
	Invalidate(ctx context.Context, companySlug string)
}

// KeyForgetter drops a cached company key.
type KeyForgetter interface {
	Forget(companySlug string)
}

type RevalidateParams struct {
	Secret  string
	Catalog CatalogInvalidator
	Keys    KeyForgetter
	Logger  *logger.Logger
	Now     func() time.Time
}

type revalidateResponse struct {
	Revalidated bool  `json:"revalidated"`
	Now         int64 `json:"now"`
}

// Revalidate drops the current company's cached catalog and key when ?secret= matches the
// configured secret. An unset secret rejects every call.
func Revalidate(params RevalidateParams) http.HandlerFunc {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		provided := r.URL.Query().Get("secret")
		if params.Secret == "" || !security.Equal(provided, params.Secret) {
			responses.WriteError(r.Context(), params.Logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid secret"))
			return
		}

		if params.Catalog != nil {
			current := params.Catalog.CurrentSlug()
			params.Catalog.Invalidate(r.Context(), current)
			if params.Keys != nil {
				params.Keys.Forget(current)
			}
		}

		responses.WriteSuccess(w, revalidateResponse{Revalidated: true, Now: now().UnixMilli()})
	}
}
