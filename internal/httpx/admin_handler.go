package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/somethingsbrewing/storefront-api/internal/customers"
)

type CustomerDirectory interface {
	List(ctx context.Context) ([]customers.Customer, error)
	UpdateRole(ctx context.Context, id, role string) error
}

type AdminHandler struct {
	Customers CustomerDirectory
}

func (h *AdminHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.With(admin).Get("/api/admin/users", h.listUsers)
	r.With(admin).Put("/api/admin/users/{id}/role", h.updateRole)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, err := h.Customers.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
}

func (h *AdminHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !customers.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Customers.UpdateRole(ctx, chi.URLParam(r, "id"), req.Role)
	if errors.Is(err, customers.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
