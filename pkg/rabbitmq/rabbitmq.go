package rabbitmq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Topology used for order events.
const (
	OrderExchange   = "order_events"
	OrderQueue      = "order_queue"
	OrderBindingKey = "order.*"
)

// ErrChannelClosed is returned when the client has no open channel.
var ErrChannelClosed = errors.New("RabbitMQ channel is not available")

// channel is the subset of *amqp.Channel the client publishes and consumes
// through.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel channel
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     *zap.Logger

	// amqp channels must not publish from several goroutines at once
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
	// BreakerTimeout is how long the publisher stays open after tripping.
	BreakerTimeout time.Duration
	// BreakerFailures is the number of consecutive publish failures that
	// trip the breaker.
	BreakerFailures uint32
}

func (c Config) withDefaults() Config {
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	return c
}

// NewClient connects to RabbitMQ, opens a channel and declares the order
// exchange, queue and binding.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info("RabbitMQ client connected",
		zap.String("exchange", OrderExchange),
		zap.String("queue", OrderQueue))

	c := newClient(ch, cfg, log)
	c.conn = conn
	return c, nil
}

func declareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		OrderExchange, // name
		"topic",       // kind
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", OrderExchange, err)
	}

	_, err = ch.QueueDeclare(
		OrderQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", OrderQueue, err)
	}

	if err := ch.QueueBind(OrderQueue, OrderBindingKey, OrderExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", OrderQueue, err)
	}
	return nil
}

func newClient(ch channel, cfg Config, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	c := &Client{channel: ch, log: log}
	c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message. While the breaker is open it
// fails fast with gobreaker.ErrOpenState.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.publish(exchange, routingKey, body)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (c *Client) publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return ErrChannelClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.channel.Publish(
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return err
	}

	c.log.Debug("order event sent", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

// ConsumeOrderEvents starts a goroutine that hands every message on the
// order queue to messageHandler. Messages are acked when the handler
// returns nil and requeued otherwise.
func (c *Client) ConsumeOrderEvents(messageHandler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return ErrChannelClosed
	}

	msgs, err := c.channel.Consume(
		OrderQueue, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("waiting for order events", zap.String("queue", OrderQueue))

	go func() {
		for msg := range msgs {
			if err := messageHandler(msg); err != nil {
				c.log.Error("failed to process order event",
					zap.Uint64("delivery_tag", msg.DeliveryTag),
					zap.Error(err))
				// Requeue once; a failed redelivery is dropped.
				if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
					c.log.Error("failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.log.Error("failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
		c.log.Info("order event consumer stopped")
	}()

	return nil
}

// LogOrderEvent returns a handler that logs every consumed order event.
func LogOrderEvent(log *zap.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		log.Info("order event received",
			zap.String("routing_key", msg.RoutingKey),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.ByteString("body", msg.Body))
		return nil
	}
}
