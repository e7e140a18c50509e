package customers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("customer not found")

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}

type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Get(ctx context.Context, id string) (Customer, error) {
	var c Customer
	err := r.DB.QueryRow(ctx, `
		SELECT id, email, COALESCE(full_name,''), role, created_at
		FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Email, &c.FullName, &c.Role, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Role resolves a user's role, defaulting to customer for accounts that have
// no local record yet.
func (r *Repo) Role(ctx context.Context, id string) (string, error) {
	c, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return RoleCustomer, nil
	}
	if err != nil {
		return "", err
	}
	return c.Role, nil
}

func (r *Repo) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, email, COALESCE(full_name,''), role, created_at
		FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Email, &c.FullName, &c.Role, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateRole(ctx context.Context, id, role string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE customers SET role=$2 WHERE id=$1`, id, role)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
