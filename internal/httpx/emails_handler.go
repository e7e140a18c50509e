package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/somethingsbrewing/storefront-api/internal/emails"
)

type EmailQueue interface {
	Enqueue(ctx context.Context, job emails.Job) error
}

type EmailsHandler struct {
	Queue EmailQueue
}

func (h *EmailsHandler) Register(r chi.Router) {
	r.Post("/api/emails/send-order-confirmation", h.send)
}

func (h *EmailsHandler) send(w http.ResponseWriter, r *http.Request) {
	var job emails.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, emails.ErrInvalidJob) {
			writeError(w, http.StatusBadRequest, "recipient, subject and body are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to queue email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
