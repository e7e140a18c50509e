package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/somethingsbrewing/storefront-api/internal/orders"
	"github.com/somethingsbrewing/storefront-api/internal/redisx"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (orders.CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (orders.OrderView, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.OrderView, error)
	UpdateTracking(ctx context.Context, orderID string, in orders.TrackingInput) (orders.TrackingEvent, error)
	Tracking(ctx context.Context, orderID string) (orders.TrackingView, error)
}

type OrdersHandler struct {
	Service OrderService
	Redis   *redis.Client
}

func (h *OrdersHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders", h.listOrders)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Get("/api/orders/{id}/status", h.orderStatus)
	r.Get("/api/orders/{id}/tracking", h.getTracking)
	r.With(admin).Post("/api/orders/{id}/tracking", h.postTracking)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Service.CreateOrder(ctx, in)
	if err != nil {
		respondError(w, err, "Failed to create order.")
		return
	}

	h.cacheStatus(ctx, res.Order.ID, res.Order.Status)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order": map[string]any{
			"id":          res.Order.ID,
			"total_cents": res.Order.TotalCents,
			"status":      res.Order.Status,
			"created_at":  res.Order.CreatedAt,
		},
		"payment": map[string]any{
			"client_secret":     res.ClientSecret,
			"payment_intent_id": res.PaymentIntentID,
		},
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := orders.ListFilter{
		CustomerID: q.Get("customer_id"),
		Status:     orders.Status(q.Get("status")),
		Page:       page,
		Limit:      limit,
		SortBy:     q.Get("sort_by"),
		SortDesc:   q.Get("sort_order") != "asc",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	views, err := h.Service.ListOrders(ctx, f)
	if err != nil {
		respondError(w, err, "Failed to fetch orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": views})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	view, err := h.Service.GetOrder(ctx, id)
	if err != nil {
		respondError(w, err, "Failed to fetch order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": view})
}

// orderStatus serves from the Redis cache when possible; the notifier keeps
// the cache fresh off the order event topics.
func (h *OrdersHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, id)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	view, err := h.Service.GetOrder(ctx, id)
	if err != nil {
		respondError(w, err, "Failed to fetch order")
		return
	}
	body, _ := json.Marshal(map[string]any{"status": view.Status})
	h.cacheStatus(ctx, id, view.Status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) getTracking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	view, err := h.Service.Tracking(ctx, id)
	if err != nil {
		respondError(w, err, "Failed to fetch tracking information")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracking": view})
}

func (h *OrdersHandler) postTracking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in orders.TrackingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Status == "" {
		writeError(w, http.StatusBadRequest, "Order ID and status are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Service.UpdateTracking(ctx, id, in)
	if err != nil {
		respondError(w, err, "Failed to create tracking entry")
		return
	}

	h.cacheStatus(ctx, id, ev.Status)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracking_entry": ev})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, status orders.Status) {
	if h.Redis == nil {
		return
	}
	body, _ := json.Marshal(map[string]any{"status": status})
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
