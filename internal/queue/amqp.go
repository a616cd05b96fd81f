package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPPublisher publishes persistent JSON messages to durable RabbitMQ
// queues through the default exchange.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	// amqp channels are not safe for concurrent publishing.
	mu       sync.Mutex
	declared map[string]bool
	logger   *zap.Logger
}

func DialAMQP(url string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
		logger:   logger.With(zap.String("component", "amqp_publisher")),
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		_, err := p.ch.QueueDeclare(
			topic, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", topic, err)
		}
		p.declared[topic] = true
		p.logger.Info("declared queue", zap.String("queue", topic))
	}

	err := p.ch.Publish(
		"",    // default exchange
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	chErr := p.ch.Close()
	if err := p.conn.Close(); err != nil {
		return err
	}
	return chErr
}

var _ Publisher = (*AMQPPublisher)(nil)
