package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InsertOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO orders(id, customer_id, affiliate_id, shipping_address, total_cents, status)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6)
		RETURNING created_at, updated_at`,
		o.ID, o.CustomerID, o.AffiliateID, o.ShippingAddress, o.TotalCents, string(o.Status)).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repo) InsertItems(ctx context.Context, orderID string, items []OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		_, err := r.DB.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			items[i].ID, orderID, items[i].ProductID, items[i].Qty, items[i].UnitPriceCents)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// DeleteItems and DeleteOrder are the compensating actions of the create
// saga; they run in reverse creation order.
func (r *Repo) DeleteItems(ctx context.Context, orderID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID)
	return err
}

func (r *Repo) DeleteOrder(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, customer_id, COALESCE(affiliate_id,''), COALESCE(shipping_address,''),
		       total_cents, status, COALESCE(tracking_number,''), COALESCE(shipping_carrier,''),
		       created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.AffiliateID, &o.ShippingAddress,
			&o.TotalCents, &o.Status, &o.TrackingNumber, &o.ShippingCarrier,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, unit_price_cents
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type ListFilter struct {
	CustomerID string
	Status     Status
	Page       int
	Limit      int
	SortBy     string
	SortDesc   bool
}

var sortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"total_cents": "total_cents",
	"status":      "status",
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
		f.SortDesc = true
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	q := `SELECT id, customer_id, COALESCE(affiliate_id,''), COALESCE(shipping_address,''),
	             total_cents, status, COALESCE(tracking_number,''), COALESCE(shipping_carrier,''),
	             created_at, updated_at
	      FROM orders WHERE 1=1`
	args := []any{}
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		q += fmt.Sprintf(" AND customer_id=$%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q += fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", col, dir, len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.AffiliateID, &o.ShippingAddress,
			&o.TotalCents, &o.Status, &o.TrackingNumber, &o.ShippingCarrier,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Settle moves a pending order to a terminal payment status. The conditional
// write is what makes duplicate payment callbacks harmless: only the first
// transition changes a row, and only a changed row triggers side effects.
func (r *Repo) Settle(ctx context.Context, id string, to Status) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3`, id, string(to), string(StatusPending))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) UpdateTrackingFields(ctx context.Context, orderID string, status Status, trackingNumber, carrier string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2,
		       tracking_number=COALESCE(NULLIF($3,''), tracking_number),
		       shipping_carrier=COALESCE(NULLIF($4,''), shipping_carrier),
		       updated_at=now()
		WHERE id=$1`, orderID, string(status), trackingNumber, carrier)
	return err
}
