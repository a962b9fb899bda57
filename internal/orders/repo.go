package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quiquecx/backoffice/internal/postgres"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrBadTransition = errors.New("invalid status transition")
)

type Repo struct{ DB *pgxpool.Pool }

// Insert writes the order header and its lines through q, which is a
// transaction when called from the placement workflow.
func Insert(ctx context.Context, q postgres.Querier, o *Order) error {
	_, err := q.Exec(ctx, `
		INSERT INTO orders(id, customer_name, customer_email, status, shipping_address, total_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`,
		o.ID, o.CustomerName, o.CustomerEmail, int(o.Status), o.ShippingAddress, o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}
	for i, l := range o.Lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, quantity, price_cents, position)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, l.ProductID, l.Quantity, l.PriceCents, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		SELECT id, customer_name, customer_email, status, shipping_address, total_cents, created_at, updated_at
		FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o.Lines, err = r.lines(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) List(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, customer_name, customer_email, status, shipping_address, total_cents, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Lines, err = r.lines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Amend updates status and/or shipping address. Line items are immutable, and
// status changes must follow the transition table.
func (r *Repo) Amend(ctx context.Context, id string, status *Status, address *string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var current int
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if status != nil {
		if !CanTransition(Status(current), *status) {
			return nil, ErrBadTransition
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
			id, int(*status), time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if address != nil {
		if _, err := tx.Exec(ctx, `UPDATE orders SET shipping_address=$2, updated_at=$3 WHERE id=$1`,
			id, *address, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) lines(ctx context.Context, orderID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity, price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status int
	if err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &status,
		&o.ShippingAddress, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}
