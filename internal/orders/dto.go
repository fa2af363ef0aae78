package orders

import (
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/pkg/types"
)

// SubmitRequest is the body of an order submission.
type SubmitRequest struct {
	Key         string             `json:"key" validate:"required,max=512"`
	Presupuesto *types.Presupuesto `json:"presupuesto" validate:"required"`
}

// WebhookPayload is what the automation webhook receives for an accepted order.
type WebhookPayload struct {
	CompanySlug string            `json:"companySlug"`
	Presupuesto types.Presupuesto `json:"presupuesto"`
	RequestedAt time.Time         `json:"requestedAt"`
}
