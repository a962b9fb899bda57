package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quiquecx/backoffice/internal/postgres"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, now); err != nil {
		return err
	}
	if err := insertBOM(ctx, tx, p.ID, p.Materials); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	return load(ctx, r.DB, id, false)
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, price_cents, stock, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Materials, err = loadBOM(ctx, r.DB, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Update rewrites the product row and replaces its bill-of-materials. Stock is
// not touched here; stock moves only through the decrement operations and
// order placement.
func (r *Repo) Update(ctx context.Context, p *Product) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE products SET name=$2, description=$3, price_cents=$4, updated_at=$5
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.PriceCents, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_materials WHERE product_id=$1`, p.ID); err != nil {
		return err
	}
	if err := insertBOM(ctx, tx, p.ID, p.Materials); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ForUpdate loads a product and its bill-of-materials with the row locked for
// the remainder of the transaction.
func ForUpdate(ctx context.Context, q postgres.Querier, id string) (*Product, error) {
	return load(ctx, q, id, true)
}

// TryDecrementStock reduces stock by qty only if enough remains, as one
// conditional statement. A zero row count is classified afterwards: the
// decrement itself is already decided atomically.
func TryDecrementStock(ctx context.Context, q postgres.Querier, id string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2`, id, qty, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func load(ctx context.Context, q postgres.Querier, id string, lock bool) (*Product, error) {
	sql := `SELECT id, name, description, price_cents, stock, created_at, updated_at
	        FROM products WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var p Product
	err := q.QueryRow(ctx, sql, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Materials, err = loadBOM(ctx, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadBOM(ctx context.Context, q postgres.Querier, productID string) ([]BOMLine, error) {
	rows, err := q.Query(ctx, `
		SELECT material_id, qty_per_unit
		FROM product_materials WHERE product_id=$1 ORDER BY position`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BOMLine
	for rows.Next() {
		var b BOMLine
		if err := rows.Scan(&b.MaterialID, &b.QtyPerUnit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func insertBOM(ctx context.Context, q postgres.Querier, productID string, lines []BOMLine) error {
	for i, b := range lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO product_materials(product_id, material_id, qty_per_unit, position)
			VALUES ($1,$2,$3,$4)`, productID, b.MaterialID, b.QtyPerUnit, i); err != nil {
			return err
		}
	}
	return nil
}
