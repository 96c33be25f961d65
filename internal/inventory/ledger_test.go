package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

func newStore(stock int) *orders.MemStore {
	m := orders.NewMemStore()
	m.SeedProduct(orders.Product{
		ID: "p1", SKU: "SKU-1", Name: "Widget",
		Price: decimal.RequireFromString("10.00"), StockQuantity: stock, Active: true,
	})
	return m
}

func stockOf(t *testing.T, m *orders.MemStore, id string) int {
	t.Helper()
	var n int
	require.NoError(t, m.WithTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		p, err := tx.Product(ctx, id)
		if err != nil {
			return err
		}
		n = p.StockQuantity
		return nil
	}))
	return n
}

func TestCheckAvailability(t *testing.T) {
	m := newStore(5)
	var l Ledger
	ctx := context.Background()

	require.NoError(t, m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		ok, err := l.CheckAvailability(ctx, tx, "p1", 5)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.CheckAvailability(ctx, tx, "p1", 6)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = l.CheckAvailability(ctx, tx, "p1", 0)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = l.CheckAvailability(ctx, tx, "missing", 1)
		var nf *orders.NotFoundError
		require.ErrorAs(t, err, &nf)
		return nil
	}))
}

func TestReserveDecrements(t *testing.T) {
	m := newStore(10)
	var l Ledger
	ctx := context.Background()

	require.NoError(t, m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		p, err := l.Reserve(ctx, tx, "p1", 3)
		require.NoError(t, err)
		assert.Equal(t, 7, p.StockQuantity)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("10.00")))
		return nil
	}))
	assert.Equal(t, 7, stockOf(t, m, "p1"))
}

func TestReserveInsufficientStockMutatesNothing(t *testing.T) {
	m := newStore(10)
	var l Ledger
	ctx := context.Background()

	err := m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := l.Reserve(ctx, tx, "p1", 11)
		return err
	})
	var insuff *orders.InsufficientStockError
	require.ErrorAs(t, err, &insuff)
	assert.Equal(t, 10, insuff.Available)
	assert.Equal(t, 11, insuff.Requested)
	assert.Equal(t, 10, stockOf(t, m, "p1"))
}

func TestReserveOutOfStock(t *testing.T) {
	m := newStore(0)
	var l Ledger
	ctx := context.Background()

	err := m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := l.Reserve(ctx, tx, "p1", 1)
		return err
	})
	var oos *orders.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "p1", oos.ProductID)
	assert.Equal(t, 0, stockOf(t, m, "p1"))
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	m := newStore(10)
	var l Ledger
	ctx := context.Background()

	err := m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := l.Reserve(ctx, tx, "p1", 0)
		return err
	})
	var insuff *orders.InsufficientStockError
	require.ErrorAs(t, err, &insuff)
	assert.Equal(t, 10, stockOf(t, m, "p1"))
}

func TestReleaseRestores(t *testing.T) {
	m := newStore(10)
	var l Ledger
	ctx := context.Background()

	require.NoError(t, m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if _, err := l.Reserve(ctx, tx, "p1", 4); err != nil {
			return err
		}
		return l.Release(ctx, tx, "p1", 4)
	}))
	assert.Equal(t, 10, stockOf(t, m, "p1"))
}

// stock(P) == initial - sum(reserved) + sum(released) after any sequence of
// successful calls, and never negative.
func TestStockConservation(t *testing.T) {
	const initial = 50
	m := newStore(initial)
	var l Ledger
	ctx := context.Background()

	reserved, released := 0, 0
	ops := []struct {
		reserve bool
		qty     int
	}{
		{true, 5}, {true, 10}, {false, 3}, {true, 20}, {false, 12}, {true, 7}, {false, 7},
	}
	for _, op := range ops {
		err := m.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
			if op.reserve {
				_, err := l.Reserve(ctx, tx, "p1", op.qty)
				return err
			}
			return l.Release(ctx, tx, "p1", op.qty)
		})
		require.NoError(t, err)
		if op.reserve {
			reserved += op.qty
		} else {
			released += op.qty
		}
		got := stockOf(t, m, "p1")
		assert.Equal(t, initial-reserved+released, got)
		assert.GreaterOrEqual(t, got, 0)
	}
}
