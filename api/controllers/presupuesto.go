package controllers

import (
	"net/http"

	"github.com/angelmondragon/catalogo-presupuesto/api/responses"
	"github.com/angelmondragon/catalogo-presupuesto/api/validators"
	"github.com/angelmondragon/catalogo-presupuesto/internal/orders"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
)

// SubmitPresupuesto accepts {key, presupuesto} and forwards it downstream. Responds 200,
// 400 INVALID_PAYLOAD, 401 INVALID_KEY, 502 WEBHOOK_ERROR or 500 INTERNAL_ERROR.
func SubmitPresupuesto(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload orders.SubmitRequest
		if err := validators.DecodePayload(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Submit(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
