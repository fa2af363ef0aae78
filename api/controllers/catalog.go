package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalogo-presupuesto/api/responses"
	"github.com/angelmondragon/catalogo-presupuesto/api/validators"
	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
)

const maxSlugLength = 120

// CatalogService is the read side of the catalog used by the HTTP layer.
type CatalogService interface {
	Current(ctx context.Context) (*catalog.Data, error)
	Load(ctx context.Context, companySlug string) (*catalog.Data, error)
}

// CatalogCurrent serves the configured company's catalog.
func CatalogCurrent(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		data, err := svc.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}

// CatalogBySlug serves the catalog of the company named in the URL.
func CatalogBySlug(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		companySlug := validators.SanitizeString(chi.URLParam(r, "slug"), maxSlugLength)
		if companySlug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "company slug is required"))
			return
		}
		data, err := svc.Load(r.Context(), companySlug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}
