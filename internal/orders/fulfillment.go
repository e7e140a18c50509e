package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/somethingsbrewing/storefront-api/internal/logging"
)

type TrackingInput struct {
	Status          Status `json:"status"`
	Notes           string `json:"notes,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	ShippingCarrier string `json:"shipping_carrier,omitempty"`
	Location        string `json:"location,omitempty"`
}

// UpdateTracking appends one tracking event and moves the order's current
// status and tracking fields. It is the manual fulfillment workflow and runs
// independently of payment reconciliation.
func (s *Service) UpdateTracking(ctx context.Context, orderID string, in TrackingInput) (TrackingEvent, error) {
	log := logging.FromContext(ctx)

	if !in.Status.Valid() {
		return TrackingEvent{}, fmt.Errorf("%w: %s", ErrInvalidStatus, in.Status)
	}
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return TrackingEvent{}, ErrOrderNotFound
		}
		return TrackingEvent{}, fmt.Errorf("load order %s: %w", orderID, err)
	}

	ev := TrackingEvent{
		OrderID:         orderID,
		Status:          in.Status,
		Notes:           in.Notes,
		TrackingNumber:  in.TrackingNumber,
		ShippingCarrier: in.ShippingCarrier,
		Location:        in.Location,
	}
	if err := s.store.AppendTracking(ctx, &ev); err != nil {
		return TrackingEvent{}, fmt.Errorf("append tracking: %w", err)
	}

	if err := s.store.UpdateTrackingFields(ctx, orderID, in.Status, in.TrackingNumber, in.ShippingCarrier); err != nil {
		log.Error("update order tracking fields failed",
			zap.String("order_id", orderID), zap.Error(err))
	}
	return ev, nil
}

type TrackingView struct {
	CurrentStatus   Status          `json:"current_status"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	ShippingCarrier string          `json:"shipping_carrier,omitempty"`
	History         []TrackingEvent `json:"history"`
}

// Tracking returns the order's current status plus its event history,
// oldest-first.
func (s *Service) Tracking(ctx context.Context, orderID string) (TrackingView, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return TrackingView{}, err
	}
	history, err := s.store.TrackingHistory(ctx, orderID)
	if err != nil {
		return TrackingView{}, fmt.Errorf("load tracking history: %w", err)
	}
	return TrackingView{
		CurrentStatus:   o.Status,
		TrackingNumber:  o.TrackingNumber,
		ShippingCarrier: o.ShippingCarrier,
		History:         history,
	}, nil
}

type OrderSummary struct {
	ItemCount     int64 `json:"item_count"`
	SubtotalCents int64 `json:"subtotal_cents"`
	TotalCents    int64 `json:"total_cents"`
}

type OrderView struct {
	Order
	Items   []OrderItem  `json:"items"`
	Summary OrderSummary `json:"summary"`
}

func (s *Service) GetOrder(ctx context.Context, id string) (OrderView, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	items, err := s.store.ItemsByOrder(ctx, id)
	if err != nil {
		return OrderView{}, fmt.Errorf("load order items: %w", err)
	}
	return orderView(o, items), nil
}

func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]OrderView, error) {
	os, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]OrderView, 0, len(os))
	for _, o := range os {
		items, err := s.store.ItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("load items for order %s: %w", o.ID, err)
		}
		out = append(out, orderView(o, items))
	}
	return out, nil
}

func orderView(o Order, items []OrderItem) OrderView {
	var count, subtotal int64
	for _, it := range items {
		count += it.Qty
		subtotal += it.Qty * it.UnitPriceCents
	}
	return OrderView{
		Order: o,
		Items: items,
		Summary: OrderSummary{
			ItemCount:     count,
			SubtotalCents: subtotal,
			TotalCents:    o.TotalCents,
		},
	}
}
