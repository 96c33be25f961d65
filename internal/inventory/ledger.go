// Package inventory owns every stock mutation. Reserve and Release are the
// only two writers of product stock; both run against a row locked for the
// caller's transaction, so check-and-decrement (and check-and-increment) are
// atomic per product.
package inventory

import (
	"context"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

type Ledger struct{}

// CheckAvailability reports whether qty units of the product can currently be
// reserved. It reads the persisted row, never a cached copy.
func (Ledger) CheckAvailability(ctx context.Context, tx orders.Tx, productID string, qty int) (bool, error) {
	p, err := tx.Product(ctx, productID)
	if err != nil {
		return false, err
	}
	return qty > 0 && qty <= p.StockQuantity, nil
}

// Reserve locks the product row, verifies stock >= qty, decrements and saves.
// It returns the product as read under the lock so the caller can capture the
// unit price at reservation time.
func (Ledger) Reserve(ctx context.Context, tx orders.Tx, productID string, qty int) (*orders.Product, error) {
	p, err := tx.ProductForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.InStock() {
		return nil, &orders.OutOfStockError{ProductID: productID}
	}
	if qty <= 0 || qty > p.StockQuantity {
		return nil, &orders.InsufficientStockError{
			ProductID: productID,
			Available: p.StockQuantity,
			Requested: qty,
		}
	}
	p.StockQuantity -= qty
	if err := tx.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Release restores qty units, used by cancellation. There is no upper bound:
// the caller restores exactly what it previously reserved.
func (Ledger) Release(ctx context.Context, tx orders.Tx, productID string, qty int) error {
	p, err := tx.ProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	p.StockQuantity += qty
	return tx.SaveProduct(ctx, p)
}
