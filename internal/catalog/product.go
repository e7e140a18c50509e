package catalog

import "time"

// Product is a storefront catalog entry. Stock is nil when inventory is not
// tracked for the product; tracked stock never goes negative.
type Product struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Available   bool      `json:"available"`
	Stock       *int64    `json:"stock,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
