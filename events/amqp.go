package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

// AMQPPublisher publishes events to a topic exchange with routing key
// "order.<event>".
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	p := &AMQPPublisher{conn: conn, exchange: exchange}
	if _, err := p.channel(); err != nil {
		conn.Close()
		return nil, err
	}
	utils.InfoLogger.Infof("Publishing order events to exchange %q", exchange)
	return p, nil
}

// channel returns the open channel, reopening it after a channel-level error.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

func RoutingKey(eventType string) string {
	return "order." + eventType
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(e.Type),
		false,
		false,
		publishing(e, body))
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// publishing wraps an encoded event. MessageId is unique per event so broker
// dedup never collapses two changes to the same order.
func publishing(e Event, body []byte) amqp.Publishing {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	return amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     id,
		CorrelationId: e.OrderID,
		Timestamp:     e.At,
		Body:          body,
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	return p.conn.Close()
}
