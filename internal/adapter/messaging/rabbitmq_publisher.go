package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/restopos/internal/logger"
	"github.com/rl1809/restopos/internal/port"
)

const (
	// StatusExchange fans order status changes out to kitchen and floor displays.
	StatusExchange    = "order_status_fanout"
	// StatusChangedType is set as the AMQP message type of every status event.
	StatusChangedType = "order.status_changed"

	dialAttempts   = 5
	publishTimeout = 5 * time.Second
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Dialer opens a channel with the exchange already declared.
type Dialer func() (Channel, error)

// RabbitMQPublisher publishes status changes to a fanout exchange and
// redials once when the channel has gone away.
type RabbitMQPublisher struct {
	mu   sync.Mutex
	dial Dialer
	ch   Channel
	log  *logger.Logger
}

var _ port.EventPublisher = (*RabbitMQPublisher)(nil)

// NewRabbitMQPublisher dials url, retrying with a growing pause, and declares
// the status exchange.
func NewRabbitMQPublisher(url string, log *logger.Logger) (*RabbitMQPublisher, error) {
	return newPublisher(amqpDialer(url), log, 2*time.Second)
}

func newPublisher(dial Dialer, log *logger.Logger, pause time.Duration) (*RabbitMQPublisher, error) {
	var (
		ch  Channel
		err error
	)
	for i := 0; i < dialAttempts; i++ {
		ch, err = dial()
		if err == nil {
			return &RabbitMQPublisher{dial: dial, ch: ch, log: log}, nil
		}
		if i < dialAttempts-1 {
			wait := time.Duration(i+1) * pause
			log.Warn(context.Background(), "rabbitmq_connect_retry",
				fmt.Sprintf("rabbitmq unavailable, retrying in %v", wait), err)
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", dialAttempts, err)
}

func amqpDialer(url string) Dialer {
	return func() (Channel, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := ch.ExchangeDeclare(StatusExchange, "fanout", true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declare %s: %w", StatusExchange, err)
		}
		return &connChannel{Channel: ch, conn: conn}, nil
	}
}

// connChannel closes the owning connection along with the channel.
type connChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *connChannel) Close() error {
	c.Channel.Close()
	return c.conn.Close()
}

func (p *RabbitMQPublisher) PublishStatusChange(ctx context.Context, change port.StatusChange) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Type:         StatusChangedType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    change.Timestamp,
		MessageId:    change.OrderID + ":" + string(change.NewStatus),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, StatusExchange, "", false, false, msg); err != nil {
		return fmt.Errorf("publish status change: %w", err)
	}

	p.log.Debug(ctx, "status_event_published", "status change published",
		slog.String("order_id", change.OrderID),
		slog.String("new_status", string(change.NewStatus)),
		slog.Int("size", len(body)))
	return nil
}

func (p *RabbitMQPublisher) channel() (Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("reconnect to rabbitmq: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}
