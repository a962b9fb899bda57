package workflow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quiquecx/backoffice/internal/catalog"
	"github.com/quiquecx/backoffice/internal/materials"
	"github.com/quiquecx/backoffice/internal/orders"
)

// PGStore backs the engine with a Postgres transaction. Rollback of an
// unfinished transaction is the abort path: nothing the engine did inside fn
// is visible to anyone until Commit.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) ProductForUpdate(ctx context.Context, id string) (*catalog.Product, error) {
	return catalog.ForUpdate(ctx, t.tx, id)
}

func (t *pgTx) DecrementStock(ctx context.Context, id string, qty int) error {
	return catalog.TryDecrementStock(ctx, t.tx, id, qty)
}

func (t *pgTx) LotForUpdate(ctx context.Context, id string) (*materials.Lot, error) {
	return materials.ForUpdate(ctx, t.tx, id)
}

func (t *pgTx) DecrementAvailable(ctx context.Context, id string, qty int) error {
	return materials.TryDecrementAvailable(ctx, t.tx, id, qty)
}

func (t *pgTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	return orders.Insert(ctx, t.tx, o)
}
