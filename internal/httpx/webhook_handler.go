package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	stripe "github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"

	"github.com/somethingsbrewing/storefront-api/internal/logging"
)

const maxWebhookBody = 65536

type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type PaymentReconciler interface {
	HandlePaymentSucceeded(ctx context.Context, intentID string, metadata map[string]string) error
	HandlePaymentFailed(ctx context.Context, intentID string, metadata map[string]string) error
}

// WebhookHandler receives signed payment-outcome callbacks. Unverifiable
// payloads are rejected before any state is touched.
type WebhookHandler struct {
	Verifier EventVerifier
	Service  PaymentReconciler
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/api/webhooks/stripe", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid payload"})
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing signature"})
		return
	}

	event, err := h.Verifier.VerifyEvent(payload, sig)
	if err != nil {
		log.Warn("webhook signature verification failed", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid signature"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case "payment_intent.succeeded":
		if err := h.reconcile(ctx, event, h.Service.HandlePaymentSucceeded); err != nil {
			log.Error("webhook processing failed", zap.String("type", string(event.Type)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Webhook processing failed"})
			return
		}
	case "payment_intent.payment_failed", "payment_intent.canceled", "payment_intent.requires_payment_method":
		if err := h.reconcile(ctx, event, h.Service.HandlePaymentFailed); err != nil {
			log.Error("webhook processing failed", zap.String("type", string(event.Type)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Webhook processing failed"})
			return
		}
	default:
		log.Info("unhandled webhook event", zap.String("type", string(event.Type)))
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (h *WebhookHandler) reconcile(ctx context.Context, event stripe.Event, apply func(context.Context, string, map[string]string) error) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return err
	}
	return apply(ctx, pi.ID, pi.Metadata)
}
