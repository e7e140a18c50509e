package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/somethingsbrewing/storefront-api/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

var badRequestErrs = []error{
	orders.ErrEmptyItems,
	orders.ErrInvalidQty,
	orders.ErrMissingCustomer,
	orders.ErrProductNotFound,
	orders.ErrProductUnavailable,
	orders.ErrInsufficientStock,
	orders.ErrInvalidStatus,
}

// statusFromErr maps the order workflow's error taxonomy onto HTTP codes.
// Validation, not-found-product and conflict errors are 400; a missing order
// is 404; anything else is a downstream failure.
func statusFromErr(err error) int {
	for _, e := range badRequestErrs {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	if errors.Is(err, orders.ErrOrderNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// userMessage keeps downstream detail out of responses: 5xx errors get a
// generic message, everything else is already user-facing.
func userMessage(err error, code int, generic string) string {
	if code >= http.StatusInternalServerError {
		return generic
	}
	return err.Error()
}

func respondError(w http.ResponseWriter, err error, generic string) {
	code := statusFromErr(err)
	writeError(w, code, userMessage(err, code, generic))
}
