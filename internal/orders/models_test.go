package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddLineItemCapturesPrice(t *testing.T) {
	p := &Product{ID: "p1", Price: price("19.99"), StockQuantity: 10}
	o := &Order{ID: "o1", Status: StatusPending}

	it, err := o.AddLineItem(p, 3)
	require.NoError(t, err)
	assert.Equal(t, "o1", it.OrderID)
	assert.Equal(t, 3, it.Quantity)
	assert.True(t, it.UnitPrice.Equal(price("19.99")))
	assert.True(t, o.Total.Equal(price("59.97")))

	// a later catalog price change must not re-price the order
	p.Price = price("99.99")
	assert.True(t, o.Items[0].UnitPrice.Equal(price("19.99")))
	assert.True(t, o.Total.Equal(price("59.97")))
}

func TestAddLineItemAccumulatesTotal(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusPending}
	_, err := o.AddLineItem(&Product{ID: "p1", Price: price("10.00")}, 2)
	require.NoError(t, err)
	_, err = o.AddLineItem(&Product{ID: "p2", Price: price("5.50")}, 1)
	require.NoError(t, err)

	require.Len(t, o.Items, 2)
	assert.True(t, o.Total.Equal(price("25.50")))
	// insertion order preserved
	assert.Equal(t, "p1", o.Items[0].ProductID)
	assert.Equal(t, "p2", o.Items[1].ProductID)
}

func TestAddLineItemRejectsBadQuantity(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusPending}
	for _, qty := range []int{0, -1} {
		_, err := o.AddLineItem(&Product{ID: "p1", Price: price("10.00"), StockQuantity: 5}, qty)
		var insuff *InsufficientStockError
		require.ErrorAs(t, err, &insuff)
		assert.Equal(t, qty, insuff.Requested)
		assert.Empty(t, o.Items)
	}
}

func TestAddLineItemRejectsTerminalOrder(t *testing.T) {
	for _, st := range []Status{StatusDelivered, StatusCancelled} {
		o := &Order{ID: "o1", Status: st}
		_, err := o.AddLineItem(&Product{ID: "p1", Price: price("10.00")}, 1)
		var bad *InvalidTransitionError
		require.ErrorAs(t, err, &bad)
		assert.Empty(t, o.Items)
	}
}

func TestSubtotal(t *testing.T) {
	it := &LineItem{Quantity: 4, UnitPrice: price("2.25")}
	assert.True(t, it.Subtotal().Equal(price("9.00")))
}
