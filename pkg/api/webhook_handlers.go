package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/solvenote/solvenote/pkg/billing"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/observability"
)

// WebhookProcessor handles one raw provider delivery
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (billing.Result, error)
}

// WebhookHandlers serves the payment provider callback
type WebhookHandlers struct {
	processor WebhookProcessor
}

// NewWebhookHandlers creates webhook handlers
func NewWebhookHandlers(processor WebhookProcessor) *WebhookHandlers {
	return &WebhookHandlers{processor: processor}
}

// RegisterRoutes registers webhook routes. They carry no end-user auth.
func (h *WebhookHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/payment-webhook", h.HandleWebhook).Methods("POST")
	router.HandleFunc("/stripe-webhook", h.HandleWebhook).Methods("POST")
}

// HandleWebhook acknowledges any parsed event with {"received": true}. Bad
// bodies and signatures answer 400; a failed grant answers 500 so the
// provider retries.
func (h *WebhookHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}

	result, err := h.processor.Process(r.Context(), payload, r.Header.Get(billing.SignatureHeader))
	switch {
	case err == nil:
		logger.WithField("result", string(result)).Debug("webhook.acknowledged")
		httputil.WriteSuccess(w, map[string]bool{"received": true})
	case errors.Is(err, billing.ErrInvalidSignature):
		logger.WithError(err).Warn("rejected webhook with invalid signature")
		httputil.WriteBadRequest(w, "Webhook error: invalid signature")
	case errors.Is(err, billing.ErrMalformedEvent):
		logger.WithError(err).Warn("rejected malformed webhook")
		httputil.WriteBadRequest(w, "Webhook error: malformed event")
	default:
		logger.WithError(err).Error("webhook processing failed")
		httputil.WriteInternalError(w)
	}
}
