package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Active        bool            `json:"active"`
	CategoryID    *string         `json:"category_id,omitempty"`
	Version       int             `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Product) InStock() bool { return p.StockQuantity > 0 }

type LineItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	// UnitPrice is the product price captured when the item was reserved.
	// Later catalog price changes never re-price an existing order.
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (it *LineItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order and its line items form one consistency boundary: items are appended
// only through AddLineItem and the stored total always equals the sum of the
// item subtotals.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	Status          Status          `json:"status"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	BillingAddress  string          `json:"billing_address,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Version         int             `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []LineItem      `json:"items"`
}

// AddLineItem appends an item priced at the product's current price and
// recomputes the total. Stock must already be reserved by the caller; the
// aggregate itself never talks to the inventory ledger.
func (o *Order) AddLineItem(p *Product, quantity int) (*LineItem, error) {
	if o.Status.Terminal() {
		return nil, &InvalidTransitionError{From: o.Status, To: o.Status}
	}
	if quantity <= 0 {
		return nil, &InsufficientStockError{ProductID: p.ID, Available: p.StockQuantity, Requested: quantity}
	}
	it := LineItem{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.Price,
	}
	o.Items = append(o.Items, it)
	o.recomputeTotal()
	return &o.Items[len(o.Items)-1], nil
}

func (o *Order) recomputeTotal() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	o.Total = total
}

// SetStatus applies an administrator-level transition.
func (o *Order) SetStatus(to Status) error {
	if to == o.Status {
		return nil
	}
	if !CanTransition(o.Status, to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	return nil
}

// Cancel moves the order to CANCELLED. Delivered and already-cancelled orders
// cannot be cancelled.
func (o *Order) Cancel() error {
	if o.Status.Terminal() {
		return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}
	o.Status = StatusCancelled
	return nil
}
