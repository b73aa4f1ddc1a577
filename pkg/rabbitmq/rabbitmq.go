package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Product event types, also used as routing keys.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
	EventProductReindex = "product.reindex"
)

// ProductEvent is the message body published for product changes.
type ProductEvent struct {
	Type       string          `json:"type"`
	ProductID  string          `json:"product_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Product    json.RawMessage `json:"product,omitempty"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchange     string
	reindexQueue string
	logger       *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL          string
	Exchange     string
	ReindexQueue string
	Logger       *zap.Logger
}

// NewClient connects to RabbitMQ, declares the product topic exchange and
// binds the reindex queue to it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.ReindexQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.ReindexQueue, err)
	}

	if err := ch.QueueBind(cfg.ReindexQueue, EventProductReindex, cfg.Exchange, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to bind %s: %w", cfg.ReindexQueue, err)
	}

	cfg.Logger.Info("RabbitMQ client connected",
		zap.String("exchange", cfg.Exchange),
		zap.String("reindex_queue", cfg.ReindexQueue),
	)

	return &Client{
		conn:         conn,
		channel:      ch,
		exchange:     cfg.Exchange,
		reindexQueue: cfg.ReindexQueue,
		logger:       cfg.Logger,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
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
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// EncodeEvent builds the AMQP message for a product event.
func EncodeEvent(event ProductEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal product event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
	}, nil
}

// DecodeEvent parses a delivered message body.
func DecodeEvent(body []byte) (ProductEvent, error) {
	var event ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return ProductEvent{}, fmt.Errorf("failed to unmarshal product event: %w", err)
	}
	if event.ProductID == "" {
		return ProductEvent{}, fmt.Errorf("product event %q has no product_id", event.Type)
	}
	return event, nil
}

// PublishProductEvent publishes event to the product exchange using its type
// as routing key.
func (c *Client) PublishProductEvent(event ProductEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	msg, err := EncodeEvent(event)
	if err != nil {
		return err
	}

	err = c.channel.Publish(
		c.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		msg)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// ConsumeReindexEvents starts a goroutine that feeds reindex events to handler.
// A message is acked on success. On failure it is requeued once and then dropped.
func (c *Client) ConsumeReindexEvents(handler func(ProductEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.reindexQueue, // queue
		"",             // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handleDelivery(msg, handler); err != nil {
				c.logger.Warn("Failed to process product event",
					zap.Uint64("delivery_tag", msg.DeliveryTag),
					zap.Bool("requeue", !msg.Redelivered),
					zap.Error(err),
				)
				if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
					c.logger.Error("Failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("Failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
	}()

	return nil
}

func handleDelivery(msg amqp.Delivery, handler func(ProductEvent) error) error {
	event, err := DecodeEvent(msg.Body)
	if err != nil {
		return err
	}
	return handler(event)
}
