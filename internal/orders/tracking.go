package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (r *Repo) AppendTracking(ctx context.Context, ev *TrackingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO order_tracking(id, order_id, status, notes, tracking_number, shipping_carrier, location)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''))
		RETURNING created_at`,
		ev.ID, ev.OrderID, string(ev.Status), ev.Notes, ev.TrackingNumber, ev.ShippingCarrier, ev.Location).
		Scan(&ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

// TrackingHistory returns events oldest-first.
func (r *Repo) TrackingHistory(ctx context.Context, orderID string) ([]TrackingEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, status, COALESCE(notes,''), COALESCE(tracking_number,''),
		       COALESCE(shipping_carrier,''), COALESCE(location,''), created_at
		FROM order_tracking WHERE order_id=$1 ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingEvent
	for rows.Next() {
		var ev TrackingEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.Status, &ev.Notes, &ev.TrackingNumber,
			&ev.ShippingCarrier, &ev.Location, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
