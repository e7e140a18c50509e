package orders

import "time"

type Order struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customer_id"`
	AffiliateID     string    `json:"affiliate_id,omitempty"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	TotalCents      int64     `json:"total_cents"`
	Status          Status    `json:"status"`
	TrackingNumber  string    `json:"tracking_number,omitempty"`
	ShippingCarrier string    `json:"shipping_carrier,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OrderItem snapshots the unit price at order time; later catalog price
// changes never touch existing orders.
type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	Qty            int64  `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// TrackingEvent is an append-only fulfillment log entry. History is returned
// in insertion order.
type TrackingEvent struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	TrackingNumber  string    `json:"tracking_number,omitempty"`
	ShippingCarrier string    `json:"shipping_carrier,omitempty"`
	Location        string    `json:"location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
