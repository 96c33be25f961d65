package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the postgres-backed Store.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

const userCols = `id, username, email, is_active, created_at`

func (t *pgTx) User(ctx context.Context, id string) (*User, error) {
	var u User
	err := t.tx.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Active, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgTx) Category(ctx context.Context, id string) (*Category, error) {
	var c Category
	err := t.tx.QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const productCols = `id, sku, name, description, price, stock_quantity, is_active, category_id, version, created_at, updated_at`

func (t *pgTx) scanProduct(row pgx.Row, id string) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.Active, &p.CategoryID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) Product(ctx context.Context, id string) (*Product, error) {
	return t.scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id), id)
}

func (t *pgTx) ProductForUpdate(ctx context.Context, id string) (*Product, error) {
	return t.scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id), id)
}

func (t *pgTx) Products(ctx context.Context) ([]Product, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
			&p.Active, &p.CategoryID, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) SaveProduct(ctx context.Context, p *Product) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products
		SET sku=$2, name=$3, description=$4, price=$5, stock_quantity=$6,
		    is_active=$7, category_id=$8, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$9`,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.StockQuantity,
		p.Active, p.CategoryID, p.Version)
	if err != nil {
		return dupErr(err)
	}
	if ct.RowsAffected() != 1 {
		return &ConcurrentModificationError{Entity: "product", ID: p.ID}
	}
	p.Version++
	return nil
}

const orderCols = `id, order_number, user_id, status, shipping_address, billing_address, notes, total, version, created_at, updated_at`

func (t *pgTx) scanOrder(row pgx.Row, key string) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.ShippingAddress,
		&o.BillingAddress, &o.Notes, &o.Total, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "order", ID: key}
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) loadItems(ctx context.Context, o *Order) error {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id=$1 ORDER BY seq`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (t *pgTx) Order(ctx context.Context, id string) (*Order, error) {
	o, err := t.scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id), id)
	if err != nil {
		return nil, err
	}
	if err := t.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *pgTx) OrderByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := t.scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE order_number=$1`, number), number)
	if err != nil {
		return nil, err
	}
	if err := t.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *pgTx) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.ShippingAddress,
			&o.BillingAddress, &o.Notes, &o.Total, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := t.loadItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *pgTx) OrderExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, status, shipping_address,
		                   billing_address, notes, total, version, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.ShippingAddress,
		o.BillingAddress, o.Notes, o.Total, o.Version, o.CreatedAt)
	return dupErr(err)
}

func (t *pgTx) SaveOrder(ctx context.Context, o *Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET status=$2, shipping_address=$3, billing_address=$4, notes=$5,
		    total=$6, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$7`,
		o.ID, o.Status, o.ShippingAddress, o.BillingAddress, o.Notes, o.Total, o.Version)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return &ConcurrentModificationError{Entity: "order", ID: o.ID}
	}
	o.Version++
	return nil
}

func (t *pgTx) InsertLineItem(ctx context.Context, it *LineItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, quantity, unit_price)
		VALUES ($1,$2,$3,$4,$5)`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice)
	return err
}

// dupErr converts a postgres unique violation into a DuplicateKeyError keyed
// by the column the constraint covers.
func dupErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := "key"
		for _, f := range []string{"order_number", "username", "email", "sku"} {
			if strings.Contains(pgErr.ConstraintName, f) {
				field = f
				break
			}
		}
		return &DuplicateKeyError{Field: field, Value: pgErr.Detail}
	}
	return err
}
