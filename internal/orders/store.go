package orders

import "context"

// Store is the unit-of-work boundary. The callback runs inside one
// transaction; it commits iff the callback returns nil, otherwise every
// write made through the Tx is rolled back.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes row access within one transaction. Lookups return
// *NotFoundError for missing rows. Save methods are compare-and-swap on the
// entity's Version: a stale version yields *ConcurrentModificationError and
// writes nothing; on success the in-memory Version is bumped.
type Tx interface {
	User(ctx context.Context, id string) (*User, error)
	Category(ctx context.Context, id string) (*Category, error)

	Product(ctx context.Context, id string) (*Product, error)
	// ProductForUpdate locks the product row for the rest of the transaction.
	ProductForUpdate(ctx context.Context, id string) (*Product, error)
	Products(ctx context.Context) ([]Product, error)
	SaveProduct(ctx context.Context, p *Product) error

	// Order and OrderByNumber load the order with its line items in
	// insertion sequence.
	Order(ctx context.Context, id string) (*Order, error)
	OrderByNumber(ctx context.Context, number string) (*Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]Order, error)
	OrderExists(ctx context.Context, id string) (bool, error)
	// InsertOrder returns *DuplicateKeyError on an order number collision.
	InsertOrder(ctx context.Context, o *Order) error
	SaveOrder(ctx context.Context, o *Order) error
	InsertLineItem(ctx context.Context, it *LineItem) error
}
