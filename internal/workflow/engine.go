package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quiquecx/backoffice/internal/catalog"
	"github.com/quiquecx/backoffice/internal/materials"
	"github.com/quiquecx/backoffice/internal/orders"
)

// Store runs fn inside one atomic unit: either every mutation made through
// the Tx is durably applied, or none is.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the row-level surface available to the engine inside a transaction.
// The *ForUpdate loads keep the row locked so the subsequent decrement cannot
// race another placement.
type Tx interface {
	ProductForUpdate(ctx context.Context, id string) (*catalog.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
	LotForUpdate(ctx context.Context, id string) (*materials.Lot, error)
	DecrementAvailable(ctx context.Context, id string, qty int) error
	InsertOrder(ctx context.Context, o *orders.Order) error
}

type PlaceOrderRequest struct {
	CustomerName    string
	CustomerEmail   string
	Status          orders.Status
	ShippingAddress string
	Lines           []orders.LineQty
}

// Engine places orders: it validates every line, deducts product stock and
// the cascaded raw-material requirements, and writes the order record, all in
// one transaction.
type Engine struct {
	Store Store
}

func NewEngine(store Store) *Engine { return &Engine{Store: store} }

// PlaceOrder implements the all-or-nothing placement contract. Any rejection
// (unknown product or lot, insufficient stock or material) or storage fault
// aborts the whole batch; no decrement survives a failed call. The total is
// recomputed from catalog prices, not taken from the caller.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*orders.Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, l := range req.Lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: l.ProductID, Quantity: l.Quantity}
		}
	}

	status := req.Status
	if !status.Valid() {
		status = orders.StatusPlaced
	}

	var placed *orders.Order
	err := e.Store.InTx(ctx, func(tx Tx) error {
		var (
			total    int
			lines    = make([]orders.Line, 0, len(req.Lines))
			required = map[string]int{}
			lotOrder []string // first-seen order, so failures are deterministic
		)

		for _, l := range req.Lines {
			p, err := tx.ProductForUpdate(ctx, l.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return &ProductNotFoundError{ProductID: l.ProductID}
				}
				return err
			}
			if p.Stock < l.Quantity {
				return &InsufficientStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: p.Stock}
			}
			if err := tx.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return &InsufficientStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: p.Stock}
				}
				return err
			}

			for _, b := range p.Materials {
				if _, seen := required[b.MaterialID]; !seen {
					lotOrder = append(lotOrder, b.MaterialID)
				}
				required[b.MaterialID] += b.QtyPerUnit * l.Quantity
			}

			total += p.PriceCents * l.Quantity
			lines = append(lines, orders.Line{ProductID: l.ProductID, Quantity: l.Quantity, PriceCents: p.PriceCents})
		}

		for _, id := range lotOrder {
			if err := e.consumeMaterial(ctx, tx, id, required[id]); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		o := &orders.Order{
			ID:              uuid.NewString(),
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			Status:          status,
			ShippingAddress: req.ShippingAddress,
			TotalCents:      total,
			Lines:           lines,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (e *Engine) consumeMaterial(ctx context.Context, tx Tx, id string, qty int) error {
	lot, err := tx.LotForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			return &MaterialNotFoundError{MaterialID: id}
		}
		return err
	}
	if lot.QuantityAvailable < qty {
		return &InsufficientMaterialError{MaterialID: id, Required: qty, Available: lot.QuantityAvailable}
	}
	if err := tx.DecrementAvailable(ctx, id, qty); err != nil {
		if errors.Is(err, materials.ErrInsufficientMaterial) {
			return &InsufficientMaterialError{MaterialID: id, Required: qty, Available: lot.QuantityAvailable}
		}
		return err
	}
	return nil
}
