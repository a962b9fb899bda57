package workflow

import (
	"errors"
	"fmt"
)

var ErrEmptyOrder = errors.New("order has no lines")

// InvalidQuantityError reports a non-positive quantity on an order line.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

type ProductNotFoundError struct{ ProductID string }

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type MaterialNotFoundError struct{ MaterialID string }

func (e *MaterialNotFoundError) Error() string {
	return fmt.Sprintf("material lot %s not found", e.MaterialID)
}

type InsufficientMaterialError struct {
	MaterialID string
	Required   int
	Available  int
}

func (e *InsufficientMaterialError) Error() string {
	return fmt.Sprintf("insufficient material in lot %s: required %d, available %d",
		e.MaterialID, e.Required, e.Available)
}

// PersistenceError marks a storage fault, as opposed to a business rejection.
// If it wraps a commit failure nothing was applied; the transaction either
// committed fully or not at all.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
