package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests and local development. All
// transactions serialize on one mutex; the callback runs against a staged
// copy of the state, so returning an error discards every write (the same
// all-or-nothing contract as PGStore). Save methods apply the same version
// compare-and-swap as the postgres implementation.
type MemStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	users      map[string]User
	categories map[string]Category
	products   map[string]Product
	orders     map[string]Order      // stored without items
	items      map[string][]LineItem // by order id, insertion sequence
	numbers    map[string]string     // order number -> order id
}

func NewMemStore() *MemStore {
	return &MemStore{st: &memState{
		users:      map[string]User{},
		categories: map[string]Category{},
		products:   map[string]Product{},
		orders:     map[string]Order{},
		items:      map[string][]LineItem{},
		numbers:    map[string]string{},
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		users:      make(map[string]User, len(st.users)),
		categories: make(map[string]Category, len(st.categories)),
		products:   make(map[string]Product, len(st.products)),
		orders:     make(map[string]Order, len(st.orders)),
		items:      make(map[string][]LineItem, len(st.items)),
		numbers:    make(map[string]string, len(st.numbers)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.orders {
		v.Items = nil
		c.orders[k] = v
	}
	for k, v := range st.items {
		c.items[k] = append([]LineItem(nil), v...)
	}
	for k, v := range st.numbers {
		c.numbers[k] = v
	}
	return c
}

func (m *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stage := m.st.clone()
	if err := fn(ctx, &memTx{st: stage}); err != nil {
		return err
	}
	m.st = stage
	return nil
}

// SeedUser registers a user outside any transaction. Test/dev helper.
func (m *MemStore) SeedUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.st.users[u.ID] = u
}

// SeedCategory registers a category outside any transaction. Test/dev helper.
func (m *MemStore) SeedCategory(c Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.categories[c.ID] = c
}

// SeedProduct registers a product outside any transaction. Test/dev helper.
func (m *MemStore) SeedProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.st.products[p.ID] = p
}

type memTx struct{ st *memState }

func (t *memTx) User(ctx context.Context, id string) (*User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	return &u, nil
}

func (t *memTx) Category(ctx context.Context, id string) (*Category, error) {
	c, ok := t.st.categories[id]
	if !ok {
		return nil, &NotFoundError{Entity: "category", ID: id}
	}
	return &c, nil
}

func (t *memTx) Product(ctx context.Context, id string) (*Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, &NotFoundError{Entity: "product", ID: id}
	}
	return &p, nil
}

// The store mutex already serializes transactions, so the lock is implicit.
func (t *memTx) ProductForUpdate(ctx context.Context, id string) (*Product, error) {
	return t.Product(ctx, id)
}

func (t *memTx) Products(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, len(t.st.products))
	for _, p := range t.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (t *memTx) SaveProduct(ctx context.Context, p *Product) error {
	stored, ok := t.st.products[p.ID]
	if !ok || stored.Version != p.Version {
		return &ConcurrentModificationError{Entity: "product", ID: p.ID}
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	t.st.products[p.ID] = *p
	return nil
}

func (t *memTx) loadOrder(id string) (*Order, bool) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, false
	}
	o.Items = append([]LineItem(nil), t.st.items[id]...)
	return &o, true
}

func (t *memTx) Order(ctx context.Context, id string) (*Order, error) {
	o, ok := t.loadOrder(id)
	if !ok {
		return nil, &NotFoundError{Entity: "order", ID: id}
	}
	return o, nil
}

func (t *memTx) OrderByNumber(ctx context.Context, number string) (*Order, error) {
	id, ok := t.st.numbers[number]
	if !ok {
		return nil, &NotFoundError{Entity: "order", ID: number}
	}
	return t.Order(ctx, id)
}

func (t *memTx) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	for id, o := range t.st.orders {
		if o.UserID == userID {
			loaded, _ := t.loadOrder(id)
			out = append(out, *loaded)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) OrderExists(ctx context.Context, id string) (bool, error) {
	_, ok := t.st.orders[id]
	return ok, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	if _, taken := t.st.numbers[o.OrderNumber]; taken {
		return &DuplicateKeyError{Field: "order_number", Value: o.OrderNumber}
	}
	cp := *o
	cp.Items = nil
	t.st.orders[o.ID] = cp
	t.st.numbers[o.OrderNumber] = o.ID
	return nil
}

func (t *memTx) SaveOrder(ctx context.Context, o *Order) error {
	stored, ok := t.st.orders[o.ID]
	if !ok || stored.Version != o.Version {
		return &ConcurrentModificationError{Entity: "order", ID: o.ID}
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	cp.Items = nil
	t.st.orders[o.ID] = cp
	return nil
}

func (t *memTx) InsertLineItem(ctx context.Context, it *LineItem) error {
	t.st.items[it.OrderID] = append(t.st.items[it.OrderID], *it)
	return nil
}
