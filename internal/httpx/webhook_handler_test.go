package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
)

var errStub = errors.New("stub failure")

type stubVerifier struct {
	event stripe.Event
	err   error
}

func (v *stubVerifier) VerifyEvent(_ []byte, _ string) (stripe.Event, error) {
	return v.event, v.err
}

type stubReconciler struct {
	succeeded []string
	failed    []string
	err       error
}

func (s *stubReconciler) HandlePaymentSucceeded(_ context.Context, intentID string, _ map[string]string) error {
	s.succeeded = append(s.succeeded, intentID)
	return s.err
}

func (s *stubReconciler) HandlePaymentFailed(_ context.Context, intentID string, _ map[string]string) error {
	s.failed = append(s.failed, intentID)
	return s.err
}

func intentEvent(typ, intentID string) stripe.Event {
	raw, _ := json.Marshal(map[string]any{
		"id":       intentID,
		"metadata": map[string]string{"order_id": "ord-1"},
	})
	return stripe.Event{
		Type: stripe.EventType(typ),
		Data: &stripe.EventData{Raw: raw},
	}
}

func postWebhook(h *WebhookHandler, sig, body string) *httptest.ResponseRecorder {
	r := NewRouter(zap.NewNop(), nil)
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(body))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_MissingSignature(t *testing.T) {
	svc := &stubReconciler{}
	h := &WebhookHandler{Verifier: &stubVerifier{}, Service: svc}

	rec := postWebhook(h, "", "{}")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.succeeded)+len(svc.failed) != 0 {
		t.Error("reconciler was called without a signature")
	}
}

func TestWebhook_InvalidSignature(t *testing.T) {
	svc := &stubReconciler{}
	h := &WebhookHandler{
		Verifier: &stubVerifier{err: errStub},
		Service:  svc,
	}

	rec := postWebhook(h, "t=1,v1=bad", "{}")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "Invalid signature" {
		t.Errorf("error = %q", resp["error"])
	}
	if len(svc.succeeded)+len(svc.failed) != 0 {
		t.Error("reconciler was called for an unverified payload")
	}
}

func TestWebhook_DispatchesSucceeded(t *testing.T) {
	svc := &stubReconciler{}
	h := &WebhookHandler{
		Verifier: &stubVerifier{event: intentEvent("payment_intent.succeeded", "pi_ok")},
		Service:  svc,
	}

	rec := postWebhook(h, "t=1,v1=sig", "{}")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(svc.succeeded) != 1 || svc.succeeded[0] != "pi_ok" {
		t.Errorf("succeeded calls = %v", svc.succeeded)
	}
	if len(svc.failed) != 0 {
		t.Errorf("failed calls = %v", svc.failed)
	}

	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp["received"] {
		t.Error("response should acknowledge receipt")
	}
}

func TestWebhook_DispatchesFailureVariants(t *testing.T) {
	for _, typ := range []string{
		"payment_intent.payment_failed",
		"payment_intent.canceled",
		"payment_intent.requires_payment_method",
	} {
		t.Run(typ, func(t *testing.T) {
			svc := &stubReconciler{}
			h := &WebhookHandler{
				Verifier: &stubVerifier{event: intentEvent(typ, "pi_bad")},
				Service:  svc,
			}

			rec := postWebhook(h, "t=1,v1=sig", "{}")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if len(svc.failed) != 1 || svc.failed[0] != "pi_bad" {
				t.Errorf("failed calls = %v", svc.failed)
			}
		})
	}
}

func TestWebhook_UnhandledEventAcknowledged(t *testing.T) {
	svc := &stubReconciler{}
	h := &WebhookHandler{
		Verifier: &stubVerifier{event: intentEvent("charge.refunded", "ch_1")},
		Service:  svc,
	}

	rec := postWebhook(h, "t=1,v1=sig", "{}")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.succeeded)+len(svc.failed) != 0 {
		t.Error("reconciler should not run for unhandled event types")
	}
}

func TestWebhook_ReconcileErrorIs500(t *testing.T) {
	for _, typ := range []string{"payment_intent.succeeded", "payment_intent.payment_failed"} {
		t.Run(typ, func(t *testing.T) {
			svc := &stubReconciler{err: errStub}
			h := &WebhookHandler{
				Verifier: &stubVerifier{event: intentEvent(typ, "pi_1")},
				Service:  svc,
			}

			rec := postWebhook(h, "t=1,v1=sig", "{}")

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp["error"] != "Webhook processing failed" {
				t.Errorf("error = %q", resp["error"])
			}
			if len(svc.succeeded)+len(svc.failed) != 1 {
				t.Errorf("reconciler calls: succeeded=%v failed=%v", svc.succeeded, svc.failed)
			}
		})
	}
}
