// Package shop orchestrates the order lifecycle: it is the only caller of the
// inventory ledger and the only writer of orders. Each operation is one
// transaction; stock and order state commit or roll back together.
package shop

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-shop-backend/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

// casRetries bounds the read-check-write retry cycle on version conflicts
// before the conflict is surfaced to the caller.
const casRetries = 3

// numberRetries bounds regeneration attempts on an order number collision.
const numberRetries = 3

// Publisher is the post-commit event sink. A nil publisher disables the
// corresponding event.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store  orders.Store
	Ledger inventory.Ledger
	Name   string // producer name stamped on events

	CreatedEvents Publisher
	ItemEvents    Publisher
	StatusEvents  Publisher

	// GenerateNumber overrides the order number source; nil uses the default.
	GenerateNumber func() string
}

func (s *Service) newNumber() string {
	if s.GenerateNumber != nil {
		return s.GenerateNumber()
	}
	return orders.NewOrderNumber()
}

// withRetry reruns the transaction on optimistic-lock conflicts. A losing
// writer re-reads current state on the next attempt instead of overwriting.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	var err error
	for i := 0; i < casRetries; i++ {
		err = s.Store.WithTx(ctx, fn)
		var conflict *orders.ConcurrentModificationError
		if errors.As(err, &conflict) {
			continue
		}
		return err
	}
	return err
}

// CreateOrder resolves the user, assigns a fresh order number and persists a
// PENDING order. No inventory interaction. An order number collision gets a
// regenerated number on a fresh transaction.
func (s *Service) CreateOrder(ctx context.Context, userID, shippingAddr, billingAddr, notes string) (*orders.Order, error) {
	var (
		out *orders.Order
		err error
	)
	for i := 0; i < numberRetries; i++ {
		o := &orders.Order{
			ID:              uuid.NewString(),
			OrderNumber:     s.newNumber(),
			UserID:          userID,
			Status:          orders.StatusPending,
			ShippingAddress: shippingAddr,
			BillingAddress:  billingAddr,
			Notes:           notes,
			Version:         1,
			CreatedAt:       time.Now().UTC(),
		}
		err = s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
			if _, uerr := tx.User(ctx, userID); uerr != nil {
				return uerr
			}
			return tx.InsertOrder(ctx, o)
		})
		var dup *orders.DuplicateKeyError
		if errors.As(err, &dup) && dup.Field == "order_number" {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = o
		break
	}
	if out == nil {
		return nil, err
	}

	s.publish(s.CreatedEvents, orders.EventOrderCreated, out.ID, orders.OrderCreatedPayload{
		OrderID:     out.ID,
		OrderNumber: out.OrderNumber,
		UserID:      out.UserID,
	})
	return out, nil
}

// AddOrderItem reserves stock and appends a line item priced at reservation
// time, all in one transaction. Any failure after the decrement aborts the
// transaction, so no stranded stock is observable.
func (s *Service) AddOrderItem(ctx context.Context, orderID, productID string, quantity int) (*orders.Order, error) {
	var out *orders.Order
	err := s.withRetry(ctx, func(ctx context.Context, tx orders.Tx) error {
		out = nil
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		p, err := s.Ledger.Reserve(ctx, tx, productID, quantity)
		if err != nil {
			return err
		}
		item, err := o.AddLineItem(p, quantity)
		if err != nil {
			return err
		}
		if err := tx.InsertLineItem(ctx, item); err != nil {
			return err
		}
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	last := out.Items[len(out.Items)-1]
	s.publish(s.ItemEvents, orders.EventOrderItemAdded, out.ID, orders.OrderItemAddedPayload{
		OrderID:   out.ID,
		ProductID: productID,
		Qty:       quantity,
		UnitPrice: last.UnitPrice,
		Total:     out.Total,
	})
	return out, nil
}

// CancelOrder releases the reserved stock of every line item and moves the
// order to CANCELLED in one transaction. Delivered and already-cancelled
// orders are rejected before any stock is touched.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var (
		out      *orders.Order
		from     orders.Status
		released []orders.ItemQty
	)
	err := s.withRetry(ctx, func(ctx context.Context, tx orders.Tx) error {
		out, released = nil, nil
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if err := o.Cancel(); err != nil {
			return err
		}
		for _, it := range o.Items {
			if err := s.Ledger.Release(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
			released = append(released, orders.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
		}
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(s.StatusEvents, orders.EventOrderStatusChanged, out.ID, orders.OrderStatusChangedPayload{
		OrderID:       out.ID,
		OrderNumber:   out.OrderNumber,
		UserID:        out.UserID,
		From:          from,
		To:            orders.StatusCancelled,
		ReleasedItems: released,
	})
	return out, nil
}

// UpdateOrderStatus applies an administrator transition. Mere status changes
// never reserve or release stock; only creation reserves, only cancellation
// releases.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status orders.Status) (*orders.Order, error) {
	var (
		out  *orders.Order
		from orders.Status
	)
	err := s.withRetry(ctx, func(ctx context.Context, tx orders.Tx) error {
		out = nil
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if err := o.SetStatus(status); err != nil {
			return err
		}
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != out.Status {
		s.publish(s.StatusEvents, orders.EventOrderStatusChanged, out.ID, orders.OrderStatusChangedPayload{
			OrderID:     out.ID,
			OrderNumber: out.OrderNumber,
			UserID:      out.UserID,
			From:        from,
			To:          out.Status,
		})
	}
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var out *orders.Order
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.Order(ctx, orderID)
		return err
	})
	return out, err
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*orders.Order, error) {
	var out *orders.Order
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.OrderByNumber(ctx, number)
		return err
	})
	return out, err
}

func (s *Service) ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	var out []orders.Order
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if _, err := tx.User(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.OrdersByUser(ctx, userID)
		return err
	})
	return out, err
}

func (s *Service) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var ok bool
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		ok, err = tx.OrderExists(ctx, orderID)
		return err
	})
	return ok, err
}

func (s *Service) GetCategory(ctx context.Context, id string) (*orders.Category, error) {
	var out *orders.Category
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.Category(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) ListProducts(ctx context.Context) ([]orders.Product, error) {
	var out []orders.Product
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.Products(ctx)
		return err
	})
	return out, err
}

// publish is fire-and-forget: the transaction already committed, event
// delivery must not fail the request.
func (s *Service) publish(p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
