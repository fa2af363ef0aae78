package orders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/httpretry"
)

const webhookExcerptLimit int64 = 512

// Sender forwards an accepted order downstream.
type Sender interface {
	Send(ctx context.Context, payload WebhookPayload) error
}

// WebhookClient posts accepted orders to the configured automation URL.
type WebhookClient struct {
	url    string
	client *httpretry.Client
}

func NewWebhookClient(url string, client *httpretry.Client) *WebhookClient {
	return &WebhookClient{url: strings.TrimSpace(url), client: client}
}

// Send posts the payload; any transport failure or non-2xx reply is a WEBHOOK_ERROR.
func (w *WebhookClient) Send(ctx context.Context, payload WebhookPayload) error {
	if w == nil || w.url == "" {
		return pkgerrors.New(pkgerrors.CodeConfig, "presupuesto webhook url not configured")
	}
	resp, err := w.client.PostJSON(ctx, w.url, nil, payload)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNetwork) {
			return pkgerrors.Wrap(pkgerrors.CodeWebhook, err, "webhook unreachable")
		}
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, webhookExcerptLimit))
		return pkgerrors.New(pkgerrors.CodeWebhook, fmt.Sprintf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, webhookExcerptLimit))
	return nil
}

var _ Sender = (*WebhookClient)(nil)

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
