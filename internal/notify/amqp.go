package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// dial connects and declares the durable event queue.
func dial(url, queueName string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return conn, ch, nil
}

// publishChannel is the part of *amqp.Channel the publisher uses.
type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages. A channel or
// connection closed by the broker is reopened on the next publish.
type AMQPPublisher struct {
	queue   string
	connect func() (io.Closer, publishChannel, error)

	mu   sync.Mutex
	conn io.Closer
	ch   publishChannel
}

func NewAMQPPublisher(url, queueName string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		queue: queueName,
		connect: func() (io.Closer, publishChannel, error) {
			return dial(url, queueName)
		},
	}
	if err := p.reconnect(); err != nil {
		return nil, err
	}
	return p, nil
}

// reconnect replaces the connection. Callers hold mu, except the constructor.
func (p *AMQPPublisher) reconnect() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn, p.ch = nil, nil

	conn, ch, err := p.connect()
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev RewardEarned) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.reconnect(); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}
	err = p.ch.Publish("", p.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if rerr := p.reconnect(); rerr != nil {
			return fmt.Errorf("publish event: %w", rerr)
		}
		err = p.ch.Publish("", p.queue, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Name and Deliver let a local Dispatcher forward events to the broker off
// the request path.
func (p *AMQPPublisher) Name() string { return "amqp" }

func (p *AMQPPublisher) Deliver(ctx context.Context, ev RewardEarned) error {
	return p.Publish(ctx, ev)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

// AMQPConsumer feeds queued events into a Dispatcher's sinks.
type AMQPConsumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

func NewAMQPConsumer(url, queueName string, logger *zap.Logger) (*AMQPConsumer, error) {
	conn, ch, err := dial(url, queueName)
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: queueName, logger: logger}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
// Messages are acked after delivery; malformed ones are rejected without
// requeue.
func (c *AMQPConsumer) Run(ctx context.Context, d *Dispatcher) error {
	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}

			var ev RewardEarned
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				c.logger.Error("discarding malformed reward event", zap.Error(err))
				_ = msg.Reject(false)
				continue
			}

			d.Deliver(ctx, ev)
			if err := msg.Ack(false); err != nil {
				c.logger.Warn("ack reward event", zap.Error(err))
			}
		}
	}
}

func (c *AMQPConsumer) Close() error {
	c.ch.Close()
	return c.conn.Close()
}
