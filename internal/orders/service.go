package orders

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/metrics"
)

// KeyValidator checks an order key against the company's stored key.
type KeyValidator interface {
	Validate(ctx context.Context, companySlug, input string) (bool, error)
}

// Service accepts presupuesto submissions.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) error
}

type ServiceParams struct {
	Keys    KeyValidator
	Sender  Sender
	Logger  *logger.Logger
	Metrics *metrics.CatalogMetrics
	Now     func() time.Time
}

type service struct {
	keys    KeyValidator
	sender  Sender
	logg    *logger.Logger
	metrics *metrics.CatalogMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Keys == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "key validator required")
	}
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook sender required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		keys:    params.Keys,
		sender:  params.Sender,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// Submit validates the payload and key, then forwards the order. Errors carry one of
// INVALID_PAYLOAD, INVALID_KEY, WEBHOOK_ERROR or INTERNAL_ERROR.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (err error) {
	defer func() { s.metrics.OrderResult(resultLabel(err)) }()

	if strings.TrimSpace(req.Key) == "" {
		return invalid("key", "is required")
	}
	if err := ValidatePresupuesto(req.Presupuesto); err != nil {
		return err
	}

	companySlug := strings.TrimSpace(req.Presupuesto.CompanySlug)
	ctx = s.logg.WithCompanySlug(ctx, companySlug)

	ok, err := s.keys.Validate(ctx, companySlug, req.Key)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeCompanyMissing) {
			return pkgerrors.Wrap(pkgerrors.CodeInvalidKey, err, "company not found for key")
		}
		s.logg.Error(ctx, "validate presupuesto key", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate key")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidKey, "key mismatch")
	}

	payload := WebhookPayload{
		CompanySlug: companySlug,
		Presupuesto: *req.Presupuesto,
		RequestedAt: s.now().UTC(),
	}
	if err := s.sender.Send(ctx, payload); err != nil {
		s.logg.Error(ctx, "forward presupuesto", err)
		if pkgerrors.IsCode(err, pkgerrors.CodeWebhook) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "forward presupuesto")
	}

	s.logg.Info(s.logg.WithField(ctx, "items", len(req.Presupuesto.Items)), "presupuesto forwarded")
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
