// Package events fans order lifecycle changes out to the admin dashboard
// websocket and, when configured, a RabbitMQ exchange.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated   = "order_created"
	OrderStatus    = "order_status"
	OrderPayment   = "order_payment"
	OrderDeleted   = "order_deleted"
	OrdersCleared  = "orders_cleared"
	ProofSubmitted = "proof_submitted"
	ProofVerified  = "proof_verified"
)

type Event struct {
	ID      string      `json:"id"`
	Type    string      `json:"event"`
	OrderID string      `json:"orderId,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	At      time.Time   `json:"at"`
}

func New(eventType, orderID string, data interface{}) Event {
	return Event{ID: uuid.NewString(), Type: eventType, OrderID: orderID, Data: data, At: time.Now().UTC()}
}

// Publisher delivers events. Delivery is best effort: callers log failures and
// never fail the originating request because of them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
