package materials

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
	ErrNotFound             = errors.New("material lot not found")
	ErrInsufficientMaterial = errors.New("insufficient material")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, l *Lot) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO raw_material_lots(id, material_name, lot_number, received_at, expires_at,
		                              quantity_received, quantity_available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
		l.ID, l.MaterialName, l.LotNumber, l.ReceivedAt, l.ExpiresAt,
		l.QuantityReceived, l.QuantityAvailable, now)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (*Lot, error) {
	return load(ctx, r.DB, id, false)
}

func (r *Repo) List(ctx context.Context) ([]Lot, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, material_name, lot_number, received_at, expires_at,
		       quantity_received, quantity_available, created_at, updated_at
		FROM raw_material_lots ORDER BY material_name, lot_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		var l Lot
		if err := rows.Scan(&l.ID, &l.MaterialName, &l.LotNumber, &l.ReceivedAt, &l.ExpiresAt,
			&l.QuantityReceived, &l.QuantityAvailable, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Update amends descriptive fields. Quantities move only through
// ReceiveShipment and the decrement operations.
func (r *Repo) Update(ctx context.Context, l *Lot) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE raw_material_lots SET material_name=$2, lot_number=$3, expires_at=$4, updated_at=$5
		WHERE id=$1`,
		l.ID, l.MaterialName, l.LotNumber, l.ExpiresAt, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM raw_material_lots WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReceiveShipment books qty into the lot: both received and available grow by
// the same amount and the receipt timestamp is refreshed.
func (r *Repo) ReceiveShipment(ctx context.Context, id string, qty int) (*Lot, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		UPDATE raw_material_lots
		SET quantity_received = quantity_received + $2,
		    quantity_available = quantity_available + $2,
		    received_at = $3, updated_at = $3
		WHERE id = $1`, id, qty, now)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// ForUpdate loads a lot with the row locked for the transaction.
func ForUpdate(ctx context.Context, q postgres.Querier, id string) (*Lot, error) {
	return load(ctx, q, id, true)
}

// TryDecrementAvailable reduces quantity_available by qty only if enough
// remains, as one conditional statement.
func TryDecrementAvailable(ctx context.Context, q postgres.Querier, id string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE raw_material_lots SET quantity_available = quantity_available - $2, updated_at = $3
		WHERE id = $1 AND quantity_available >= $2`, id, qty, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM raw_material_lots WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientMaterial
}

func load(ctx context.Context, q postgres.Querier, id string, lock bool) (*Lot, error) {
	sql := `SELECT id, material_name, lot_number, received_at, expires_at,
	               quantity_received, quantity_available, created_at, updated_at
	        FROM raw_material_lots WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var l Lot
	err := q.QueryRow(ctx, sql, id).Scan(&l.ID, &l.MaterialName, &l.LotNumber, &l.ReceivedAt,
		&l.ExpiresAt, &l.QuantityReceived, &l.QuantityAvailable, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}
